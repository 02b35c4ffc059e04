package audit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Deliver(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEmitterDeliversToSinks(t *testing.T) {
	sink := &recordingSink{}
	emitter := NewEmitter(8, nil, sink)
	go emitter.DispatchLoop()
	defer emitter.Stop()

	emitter.Emit(Event{Type: EventVoteAccepted, PollId: "poll-1", VoteHash: "abc"})
	emitter.Emit(Event{Type: EventPollClosed, PollId: "poll-1"})

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, EventVoteAccepted, sink.events[0].Type)
	require.False(t, sink.events[0].Timestamp.IsZero(), "emitter stamps events")
}

// Emit must never block the caller, even with no dispatcher draining
// the buffer: overflow is dropped.
func TestEmitterDropsOnFullBuffer(t *testing.T) {
	emitter := NewEmitter(2, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			emitter.Emit(Event{Type: EventVoteAccepted, PollId: "poll-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
	require.Len(t, emitter.events, 2)
}
