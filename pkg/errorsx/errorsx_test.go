package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonSTTTranscribe)
	if Reason(err) != ReasonSTTTranscribe {
		t.Fatalf("expected reason %s, got %s", ReasonSTTTranscribe, Reason(err))
	}
	if !HasReason(err, ReasonSTTTranscribe) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonTTSConnect)
	second := Wrap(first, ReasonSTTTranscribe)
	if Reason(second) != ReasonTTSConnect {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ReasonCaptureOpen) != nil {
		t.Fatalf("expected nil passthrough")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
