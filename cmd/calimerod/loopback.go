package main

import (
	"context"
	"sync"
)

// loopbackBroadcast is the single-process stand-in for the broadcast
// mesh transport.Broadcast otherwise requires an external substrate
// for (QUIC, libp2p, ...): every Publish is fanned out to every local
// Subscribe channel on the same topic, with no network hop at all. It
// mirrors the teacher's own benchmark tool offering a "local" transport
// alongside its real ZMQ one, here as the default for a single-node
// deployment; a multi-node deployment replaces it with a real
// transport.Broadcast implementation at wiring time.
type loopbackBroadcast struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func newLoopbackBroadcast() *loopbackBroadcast {
	return &loopbackBroadcast{subs: make(map[string][]chan []byte)}
}

func (b *loopbackBroadcast) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic]
		for i, c := range subs {
			if c == ch {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (b *loopbackBroadcast) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, topic)
	return nil
}

func (b *loopbackBroadcast) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- payload:
		default:
			// Slow subscriber drops the frame; the sync engine's
			// delta-catchup path is the repair mechanism for loss,
			// matching transport.Broadcast's documented best-effort
			// delivery contract.
		}
	}
	return nil
}

func (b *loopbackBroadcast) MeshSize(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
