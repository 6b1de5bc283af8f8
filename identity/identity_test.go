package identity

import (
	"net/http"
	"testing"
)

func TestRotatorCyclesDeterministically(t *testing.T) {
	r := NewRotator()
	n := r.Len()

	first := r.Next()
	for i := 1; i < n; i++ {
		r.Next()
	}
	wrapped := r.Next()

	if first.Name != wrapped.Name {
		t.Fatalf("identity after a full cycle = %q, want %q", wrapped.Name, first.Name)
	}
	if wrapped.Sequence != n {
		t.Fatalf("sequence = %d, want %d", wrapped.Sequence, n)
	}
	if got := r.Count(); got != n+1 {
		t.Fatalf("count = %d, want %d", got, n+1)
	}
}

func TestRotatorAtIsPure(t *testing.T) {
	r := NewRotator()
	a := r.At(3)
	b := r.At(3)
	if a.Name != b.Name || a.UserAgent != b.UserAgent {
		t.Fatalf("At(3) not stable: %q vs %q", a.Name, b.Name)
	}
	if r.Count() != 0 {
		t.Fatalf("At must not advance the rotator")
	}
}

func TestConsecutiveIdentitiesAlternateTransport(t *testing.T) {
	r := NewRotator()
	for i := 0; i < r.Len(); i++ {
		cur, next := r.At(i), r.At(i+1)
		if cur.UserAgent == next.UserAgent {
			t.Fatalf("identities %d and %d share a user agent", i, i+1)
		}
		if cur.Impersonate == next.Impersonate {
			t.Fatalf("identities %d and %d share a transport flavour", i, i+1)
		}
	}
}

func TestHeaderIsIndependentCopy(t *testing.T) {
	r := NewRotator(Profile{
		Name:      "custom",
		UserAgent: "agent/1.0",
		Headers:   http.Header{"Accept": {"text/html"}},
	})

	h := r.Next().Header()
	if got := h.Get("User-Agent"); got != "agent/1.0" {
		t.Fatalf("user agent = %q", got)
	}
	h.Set("Accept", "mutated")

	if got := r.Next().Header().Get("Accept"); got != "text/html" {
		t.Fatalf("profile headers were mutated through a returned header: %q", got)
	}
}
