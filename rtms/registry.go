package rtms

import "sync"

// Registry tracks the active MeetingSession per meeting UUID. Insertions and
// removals are atomic with respect to concurrent webhook deliveries for the
// same meeting.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*MeetingSession
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*MeetingSession),
	}
}

// Add registers a session, returning any session it displaced so the caller
// can close it. At most one session is active per meeting UUID.
func (r *Registry) Add(s *MeetingSession) *MeetingSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[s.MeetingUUID]
	r.sessions[s.MeetingUUID] = s
	return prev
}

// Remove deregisters and returns the session for a meeting, if any.
func (r *Registry) Remove(meetingUUID string) *MeetingSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[meetingUUID]
	delete(r.sessions, meetingUUID)
	return s
}

// Get returns the active session for a meeting.
func (r *Registry) Get(meetingUUID string) (*MeetingSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[meetingUUID]
	return s, ok
}

// Len reports the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
