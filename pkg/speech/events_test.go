package speech

import (
	"fmt"
	"sync"
	"testing"

	"github.com/murmurlabs/murmur/pkg/metrics"
)

func TestEmitterDropsOldestWhenFull(t *testing.T) {
	mem := metrics.NewMemoryObserver()
	e := NewEmitter(2, mem)

	e.Emit(Event{UtteranceID: "a"})
	e.Emit(Event{UtteranceID: "b"})
	e.Emit(Event{UtteranceID: "c"})

	if got := e.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}
	ev, ok := e.Next()
	if !ok || ev.UtteranceID != "b" {
		t.Fatalf("first = %q ok=%v, want b", ev.UtteranceID, ok)
	}
	ev, ok = e.Next()
	if !ok || ev.UtteranceID != "c" {
		t.Fatalf("second = %q ok=%v, want c", ev.UtteranceID, ok)
	}

	events := mem.Snapshot()
	if len(events) != 1 || events[0].Name != "speech.utterance_dropped" {
		t.Fatalf("unexpected metrics: %+v", events)
	}
}

func TestEmitterNextBlocksUntilEmit(t *testing.T) {
	e := NewEmitter(4, nil)

	go e.Emit(Event{UtteranceID: "x"})

	ev, ok := e.Next()
	if !ok || ev.UtteranceID != "x" {
		t.Fatalf("got %q ok=%v, want x", ev.UtteranceID, ok)
	}
}

func TestEmitterCloseDrainsPending(t *testing.T) {
	e := NewEmitter(4, nil)
	e.Emit(Event{UtteranceID: "a"})
	e.Close()

	ev, ok := e.Next()
	if !ok || ev.UtteranceID != "a" {
		t.Fatalf("got %q ok=%v, want a", ev.UtteranceID, ok)
	}
	if _, ok := e.Next(); ok {
		t.Fatal("expected closed emitter to report no more events")
	}

	// Emits after close are ignored.
	e.Emit(Event{UtteranceID: "late"})
	if _, ok := e.Next(); ok {
		t.Fatal("event accepted after close")
	}
}

func TestEmitterConcurrentEmitAndClose(t *testing.T) {
	// Producers racing Close must never panic; run with -race.
	for round := 0; round < 50; round++ {
		e := NewEmitter(2, nil)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					e.Emit(Event{UtteranceID: fmt.Sprintf("%d-%d", i, j)})
				}
			}(i)
		}
		e.Close()
		wg.Wait()
	}
}
