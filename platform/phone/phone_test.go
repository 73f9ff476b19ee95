package phone

import "testing"

func TestNormalizeE164_USNumber(t *testing.T) {
	got := NormalizeE164("(415) 555-2671", "US")
	if got != "+14155552671" {
		t.Fatalf("expected +14155552671, got %q", got)
	}
}

func TestNormalizeE164_DefaultsRegion(t *testing.T) {
	got := NormalizeE164("415-555-2671", "")
	if got != "+14155552671" {
		t.Fatalf("expected +14155552671, got %q", got)
	}
}

func TestNormalizeE164_KeepsUnparseableInput(t *testing.T) {
	got := NormalizeE164("  call me maybe ", "US")
	if got != "call me maybe" {
		t.Fatalf("expected trimmed input, got %q", got)
	}
}
