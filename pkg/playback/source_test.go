package playback

import "testing"

func TestStreamingSourceDeliversInOrder(t *testing.T) {
	source, handle := NewStream(16000)

	handle.PushChunk([]float32{1, 2})
	handle.PushChunk([]float32{3})
	handle.MarkFinished()

	for i, want := range []float32{1, 2, 3} {
		got, ok := source.Next()
		if !ok {
			t.Fatalf("sample %d: unexpected end of stream", i)
		}
		if got != want {
			t.Fatalf("sample %d = %v, want %v", i, got, want)
		}
	}
}

func TestStreamingSourceEndsAfterFinishedAndDrained(t *testing.T) {
	source, handle := NewStream(16000)

	handle.PushChunk([]float32{1})
	handle.MarkFinished()

	if _, ok := source.Next(); !ok {
		t.Fatal("expected the buffered sample before end of stream")
	}
	for i := 0; i < 5; i++ {
		if v, ok := source.Next(); ok {
			t.Fatalf("pull %d after drain returned %v, want end of stream", i, v)
		}
	}
}

func TestStreamingHandleClearResets(t *testing.T) {
	source, handle := NewStream(16000)

	handle.PushChunk([]float32{1, 2})
	handle.MarkFinished()
	handle.Clear()

	if handle.Finished() {
		t.Fatal("clear did not reset the finished flag")
	}

	handle.PushChunk([]float32{7})
	handle.MarkFinished()
	if v, ok := source.Next(); !ok || v != 7 {
		t.Fatalf("got %v ok=%v, want 7 after clear", v, ok)
	}
	if _, ok := source.Next(); ok {
		t.Fatal("expected end of stream after cleared queue drained")
	}
}

func TestBufferedSourcePlaysOnce(t *testing.T) {
	s := NewBufferedSource([]float32{4, 5}, 22050)
	if s.SampleRate() != 22050 {
		t.Fatalf("sample rate = %d", s.SampleRate())
	}
	for _, want := range []float32{4, 5} {
		got, ok := s.Next()
		if !ok || got != want {
			t.Fatalf("got %v ok=%v, want %v", got, ok, want)
		}
	}
	if _, ok := s.Next(); ok {
		t.Fatal("expected end of buffer")
	}
}
