package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"

	corelog "github.com/calimero-network/core/log"
)

type recordingLogger struct {
	corelog.NoLog
	lastMsg    string
	lastFields []interface{}
}

func (r *recordingLogger) Info(msg string, ctx ...interface{}) {
	r.lastMsg = msg
	r.lastFields = ctx
}

var _ log.Logger = (*recordingLogger)(nil)

func TestLoggingSinkRecordsHumanReadableSummary(t *testing.T) {
	rl := &recordingLogger{}
	sink := LoggingSink{Logger: rl}

	sink.Record(AttemptReport{
		Timings:        PhaseTimings{Total: 2500 * time.Millisecond},
		Outcome:        OutcomeSuccess,
		Protocol:       StrategyHashComparison,
		RecordsApplied: 12345,
	})

	require.Equal(t, "sync attempt completed", rl.lastMsg)
	require.Contains(t, rl.lastFields, "12,345")
	require.Contains(t, rl.lastFields, "success")
}
