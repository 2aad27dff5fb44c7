package domain

import (
	"errors"
	"testing"
)

func TestStatusFromUpstream(t *testing.T) {
	cases := []struct {
		raw  string
		want JobStatus
	}{
		{"succeeded", JobStatusSucceeded},
		{"failed", JobStatusFailed},
		{"canceled", JobStatusFailed},
		{"starting", JobStatusProcessing},
		{"processing", JobStatusProcessing},
		{"", JobStatusProcessing},
		{"SUCCEEDED", JobStatusSucceeded},
	}
	for _, tc := range cases {
		if got := StatusFromUpstream(tc.raw); got != tc.want {
			t.Fatalf("StatusFromUpstream(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestJobRefRoundTrip(t *testing.T) {
	ref := JobRef{"abc123", "def456", "ghi789"}
	wire := ref.String()
	if wire != "abc123|def456|ghi789" {
		t.Fatalf("wire form = %q", wire)
	}
	parsed, err := ParseJobRef(wire)
	if err != nil {
		t.Fatalf("ParseJobRef: %v", err)
	}
	if len(parsed) != 3 || parsed[0] != "abc123" || parsed[2] != "ghi789" {
		t.Fatalf("parsed = %v", parsed)
	}
	if !parsed.Composite() {
		t.Fatal("three-part ref should be composite")
	}
}

func TestParseJobRefSingle(t *testing.T) {
	ref, err := ParseJobRef("solo")
	if err != nil {
		t.Fatalf("ParseJobRef: %v", err)
	}
	if ref.Composite() {
		t.Fatal("single id should not be composite")
	}
}

func TestParseJobRefRejectsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "a||b", "|a"} {
		if _, err := ParseJobRef(raw); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("ParseJobRef(%q) err = %v, want ErrBadRequest", raw, err)
		}
	}
}

func TestUserBalanceFirstRun(t *testing.T) {
	u := &User{ID: "user_1"}
	if got := u.Balance(); !got.Equal(FirstRunCredits) {
		t.Fatalf("first-run balance = %s, want %s", got, FirstRunCredits)
	}
	u.HasCredits = true
	if got := u.Balance(); !got.IsZero() {
		t.Fatalf("explicit zero balance = %s, want 0", got)
	}
}
