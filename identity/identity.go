// Package identity supplies the client identity (headers and transport flavour)
// attached to each outbound request.
package identity

import (
	"net/http"
	"sync"
)

// Profile is a plausible browser header set. Impersonate selects the
// browser-fingerprint transport instead of the plain one.
type Profile struct {
	Name        string
	UserAgent   string
	Headers     http.Header
	Impersonate bool
}

// Identity is the profile chosen for one request.
type Identity struct {
	Profile
	Sequence int
}

// Header returns a fresh header map for the request, User-Agent included.
func (id Identity) Header() http.Header {
	h := id.Headers.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("User-Agent", id.UserAgent)
	return h
}

// Rotator hands out identities in a fixed cycle. One instance is owned by one run.
type Rotator struct {
	profiles []Profile

	mu    sync.Mutex
	count int
}

// NewRotator cycles through profiles, or DefaultProfiles when none are given.
func NewRotator(profiles ...Profile) *Rotator {
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	return &Rotator{profiles: profiles}
}

// At returns the identity for call number n without advancing the rotator.
func (r *Rotator) At(n int) Identity {
	if n < 0 {
		n = -n
	}
	p := r.profiles[n%len(r.profiles)]
	return Identity{Profile: p, Sequence: n}
}

// Next returns the identity for the next call.
func (r *Rotator) Next() Identity {
	r.mu.Lock()
	n := r.count
	r.count++
	r.mu.Unlock()
	return r.At(n)
}

// Count reports how many identities have been handed out.
func (r *Rotator) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Len is the cycle length.
func (r *Rotator) Len() int {
	return len(r.profiles)
}
