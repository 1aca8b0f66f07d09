package sync

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/luxfi/log"
)

// Outcome tags how one sync attempt concluded.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// PhaseTimings records how long each phase of one sync attempt took,
// the breakdown spec.md's observability contract names explicitly.
type PhaseTimings struct {
	PeerSelection time.Duration
	KeyShare      time.Duration
	BlobShare     time.Duration
	DagCompare    time.Duration
	DataTransfer  time.Duration
	Total         time.Duration
}

// AttemptReport is what one sync attempt reports to the metrics sink:
// phase timings, final outcome, the protocol that ended up being used,
// and how many records it applied.
type AttemptReport struct {
	Timings        PhaseTimings
	Outcome        Outcome
	Protocol       StateStrategy
	UsedDeltaPath  bool
	RecordsApplied int
}

// Sink is the metrics collector boundary; the engine only ever calls
// Record, leaving the concrete exposition (Prometheus, StatsD, ...)
// entirely up to the embedder.
type Sink interface {
	Record(report AttemptReport)
}

// Counters is a minimal in-memory Sink useful for tests and for an
// embedder that wants simple cumulative counts without a real metrics
// backend.
type Counters struct {
	Success  int
	Failure  int
	Timeout  int
	ByProtocol map[StateStrategy]int
}

// NewCounters returns a zeroed Counters ready to use as a Sink.
func NewCounters() *Counters {
	return &Counters{ByProtocol: make(map[StateStrategy]int)}
}

// Record implements Sink.
func (c *Counters) Record(report AttemptReport) {
	switch report.Outcome {
	case OutcomeSuccess:
		c.Success++
	case OutcomeFailure:
		c.Failure++
	case OutcomeTimeout:
		c.Timeout++
	}
	if !report.UsedDeltaPath {
		c.ByProtocol[report.Protocol]++
	}
}

// LoggingSink logs one line per sync attempt at the injected logger's
// Info level, human-readable record counts and phase duration, useful
// as the default Sink for an embedder that wants attempts visible in
// its log stream without standing up a Prometheus scrape target.
type LoggingSink struct {
	Logger log.Logger
}

// Record implements Sink.
func (s LoggingSink) Record(report AttemptReport) {
	s.Logger.Info("sync attempt completed",
		"outcome", report.Outcome.String(),
		"protocol", report.Protocol,
		"records_applied", humanize.Comma(int64(report.RecordsApplied)),
		"used_delta_path", report.UsedDeltaPath,
		"duration", report.Timings.Total.String(),
	)
}
