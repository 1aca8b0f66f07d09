// Command calimerod wires one process's storage, delta, and sync
// components together behind the orchestrator and runs until signalled
// to stop. The wire transport and the bytecode sandbox remain external
// collaborators: calimerod ships a loopback broadcast suitable for a
// single-node deployment and leaves the sandboxed-module Runner and any
// multi-node transport substrate to be supplied by an embedder.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/luxfi/log"

	corelog "github.com/calimero-network/core/log"

	"github.com/calimero-network/core/delta"
	"github.com/calimero-network/core/index"
	"github.com/calimero-network/core/metrics"
	"github.com/calimero-network/core/orchestrator"
	"github.com/calimero-network/core/storage"
	"github.com/calimero-network/core/sync"
	"github.com/calimero-network/core/types"
)

func main() {
	configPath := flag.String("config", "", "path to calimerod YAML config (defaults used if absent)")
	flag.Parse()

	cfg, err := Load(*configPath)
	if err != nil {
		fatal(err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fatal(err)
	}

	logger := log.Logger(corelog.NoLog{})
	broadcast := newLoopbackBroadcast()
	mreg := metrics.NewRegistry()

	o := orchestrator.New(logger, broadcast, func(id types.ContextId) (*orchestrator.Context, error) {
		idx := index.New()
		front := storage.New(idx, storage.NewRegistry())
		store, err := delta.New(front, cfg.DeltaMaxPending)
		if err != nil {
			return nil, err
		}
		store.SetLogger(logger)

		peers := sync.NewPeerStates(cfg.backoffConfig())
		peers.SetMetrics(
			mreg.NewCounter(id.String()+"_sync_success"),
			mreg.NewCounter(id.String()+"_sync_failure"),
		)

		return &orchestrator.Context{
			ID:      id,
			Storage: front,
			Deltas:  store,
			Peers:   peers,
		}, nil
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, hex := range cfg.Contexts {
		id, err := types.ContextIdFromHex(hex)
		if err != nil {
			fatal(err)
		}
		if err := o.Subscribe(ctx, id); err != nil {
			fatal(err)
		}
	}

	logger.Info("calimerod started", "data_dir", cfg.DataDir, "contexts", len(cfg.Contexts))
	<-ctx.Done()
	logger.Info("calimerod shutting down")
}

func fatal(err error) {
	os.Stderr.WriteString("calimerod: " + err.Error() + "\n")
	os.Exit(1)
}
