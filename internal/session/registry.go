// Package session owns all live per-connection state. Every mutation of a
// session goes through the Registry; no other component holds a writable
// reference to session fields.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/studychat/backend/internal/model"
)

// Session is the in-memory state bound to one live connection: identity,
// active conversation, generation configuration and the running history the
// generation backend is rebuilt from on reconnect.
type Session struct {
	ConnID         string
	UserID         int64
	ConversationID *int64
	Config         model.GenerationConfig
	LastActivity   time.Time

	// history is append-only; each entry tracks whether it has been written
	// to storage, so a flush writes each turn exactly once and a turn parked
	// by a failed save stays unsaved however the history grows around it.
	history []historyEntry

	// cancelled flags the in-flight generation. Atomic because the read pump
	// sets it while the connection worker is blocked inside the generation
	// call.
	cancelled atomic.Bool
}

type historyEntry struct {
	turn  model.Turn
	saved bool
}

// snapshot returns a copy safe to hand out of the registry. History is not
// exposed here; callers use the dedicated history operations.
func (s *Session) snapshot() Session {
	out := Session{
		ConnID:       s.ConnID,
		UserID:       s.UserID,
		Config:       s.Config,
		LastActivity: s.LastActivity,
	}
	if s.ConversationID != nil {
		id := *s.ConversationID
		out.ConversationID = &id
	}
	return out
}

// Registry is the single authority for live sessions, keyed by a stable
// connection identity. At most one session exists per connection at a time.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Bind creates and stores a new session for the connection. It fails with
// model.ErrDuplicateBinding if one already exists; callers must Unbind first.
func (r *Registry) Bind(connID string, userID int64, defaults model.GenerationConfig) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[connID]; exists {
		return Session{}, model.ErrDuplicateBinding
	}

	sess := &Session{
		ConnID:       connID,
		UserID:       userID,
		Config:       defaults,
		LastActivity: time.Now(),
	}
	r.sessions[connID] = sess
	return sess.snapshot(), nil
}

// Get looks up the session for a connection. The second result reports
// presence; absence is not an error.
func (r *Registry) Get(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	return sess.snapshot(), true
}

// Touch updates the session's last-activity timestamp. No-op if absent.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[connID]; ok {
		sess.LastActivity = time.Now()
	}
}

// SetActiveConversation binds (or, with nil, clears) the session's active
// conversation. Clearing also resets the in-memory history.
func (r *Registry) SetActiveConversation(connID string, conversationID *int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return
	}
	if conversationID == nil {
		sess.ConversationID = nil
		sess.history = nil
		return
	}
	id := *conversationID
	sess.ConversationID = &id
}

// SetGenerationConfig merges a partial configuration into the session,
// preserving unset fields.
func (r *Registry) SetGenerationConfig(connID string, patch model.GenerationConfigPatch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[connID]; ok {
		sess.Config = patch.Apply(sess.Config)
	}
}

// ReplaceGenerationConfig overwrites the session's configuration wholesale.
// Used when a loaded conversation's stored snapshot is reinstated.
func (r *Registry) ReplaceGenerationConfig(connID string, cfg model.GenerationConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[connID]; ok {
		sess.Config = cfg
	}
}

// Unbind removes the session. Idempotent.
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connID)
}

// SweepIdle returns the connections whose idle time exceeds the threshold.
// Sessions are not removed; the caller closes the transport first and then
// unbinds.
func (r *Registry) SweepIdle(threshold time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var expired []string
	for connID, sess := range r.sessions {
		if now.Sub(sess.LastActivity) > threshold {
			expired = append(expired, connID)
		}
	}
	return expired
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// AppendExchange appends turns to the session history. When persisted is
// true the turns are counted as already written to storage.
func (r *Registry) AppendExchange(connID string, persisted bool, turns ...model.Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return
	}
	for _, turn := range turns {
		sess.history = append(sess.history, historyEntry{turn: turn, saved: persisted})
	}
}

// ReplaceHistory swaps in a history rebuilt from a stored transcript. The
// entire history counts as persisted.
func (r *Registry) ReplaceHistory(connID string, turns []model.Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return
	}
	sess.history = make([]historyEntry, 0, len(turns))
	for _, turn := range turns {
		sess.history = append(sess.history, historyEntry{turn: turn, saved: true})
	}
}

// History returns a copy of the session's in-memory history.
func (r *Registry) History(connID string) []model.Turn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	turns := make([]model.Turn, 0, len(sess.history))
	for _, entry := range sess.history {
		turns = append(turns, entry.turn)
	}
	return turns
}

// UnsavedTurns returns, in history order, the turns not yet written to
// storage.
func (r *Registry) UnsavedTurns(connID string) []model.Turn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	var turns []model.Turn
	for _, entry := range sess.history {
		if !entry.saved {
			turns = append(turns, entry.turn)
		}
	}
	return turns
}

// MarkSaved marks the first n unsaved turns as written to storage. Turns
// appended while a flush was in flight stay unsaved for the next one.
func (r *Registry) MarkSaved(connID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return
	}
	for i := range sess.history {
		if n == 0 {
			return
		}
		if !sess.history[i].saved {
			sess.history[i].saved = true
			n--
		}
	}
}

// RequestCancel sets the cancellation flag for the session's in-flight
// generation. Safe to call while the connection worker is blocked.
func (r *Registry) RequestCancel(connID string) {
	r.mu.RLock()
	sess, ok := r.sessions[connID]
	r.mu.RUnlock()

	if ok {
		sess.cancelled.Store(true)
	}
}

// ClearCancel resets the cancellation flag before a new generation starts.
func (r *Registry) ClearCancel(connID string) {
	r.mu.RLock()
	sess, ok := r.sessions[connID]
	r.mu.RUnlock()

	if ok {
		sess.cancelled.Store(false)
	}
}

// CancelRequested reports whether cancellation was requested for the
// session's in-flight generation.
func (r *Registry) CancelRequested(connID string) bool {
	r.mu.RLock()
	sess, ok := r.sessions[connID]
	r.mu.RUnlock()

	return ok && sess.cancelled.Load()
}
