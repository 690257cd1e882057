package osdep

import (
	"testing"
	"time"
)

func TestTimeoutSentinels(t *testing.T) {
	if !NoWait.IsNoWait() || NoWait.IsForever() {
		t.Fatal("NoWait misclassified")
	}
	if !Forever.IsForever() || !Timeout(-7).IsForever() {
		t.Fatal("negative timeouts must be forever")
	}
	if Millis(5).Duration() != 5*time.Millisecond {
		t.Fatalf("duration %v", Millis(5).Duration())
	}
	if Seconds(2) != 2000 {
		t.Fatalf("Seconds(2) = %d", Seconds(2))
	}
}

func TestFromDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want Timeout
	}{
		{0, NoWait},
		{time.Microsecond, 1},
		{1500 * time.Microsecond, 2},
		{-time.Second, Forever},
	}
	for _, c := range cases {
		if got := FromDuration(c.in); got != c.want {
			t.Fatalf("FromDuration(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRemaining(t *testing.T) {
	if got := Millis(100).Remaining(1000, 1030); got != 70 {
		t.Fatalf("remaining %d", got)
	}
	if got := Millis(100).Remaining(1000, 1200); got != NoWait {
		t.Fatalf("expired remaining %d", got)
	}
	if got := Forever.Remaining(0, 1<<40); got != Forever {
		t.Fatalf("forever remaining %d", got)
	}
	if d, ok := Millis(10).Deadline(5); !ok || d != 15 {
		t.Fatalf("deadline %d %v", d, ok)
	}
	if _, ok := Forever.Deadline(5); ok {
		t.Fatal("forever has no deadline")
	}
}
