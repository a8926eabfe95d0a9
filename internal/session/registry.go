// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package session

import "sync"

// Registry is the process-wide mapping from a derived session id to its
// Session, described in spec.md §3: "the registry contains exactly the
// set of admitted, not-yet-terminated sessions."
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Insert adds s under id. Called once, from the supervisor's accept path.
func (r *Registry) Insert(id string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = s
}

// Remove deletes id. Called once, from session teardown.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Size reports the number of admitted, not-yet-terminated sessions. It is
// the SizeFunc the gatehouse's ConnectionCapRule is wired against.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Get returns the session registered under id, if any.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}
