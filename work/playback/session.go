package playback

import (
	"crypto/rand"
	"encoding/hex"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Session ties a playback controller to a channel for the HTTP API.
type Session struct {
	ID        string `json:"id"`
	ChannelID string `json:"channelId"`

	Controller *Controller `json:"-"`
}

// Manager holds the live playback sessions. All methods are safe for
// concurrent use.
type Manager struct {
	sessions *xsync.MapOf[string, *Session]
	count    atomic.Int64
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: xsync.NewMapOf[string, *Session](),
	}
}

// Create registers a new session over the given controller.
func (m *Manager) Create(channelID string, ctrl *Controller) *Session {
	s := &Session{
		ID:         newSessionID(),
		ChannelID:  channelID,
		Controller: ctrl,
	}
	m.sessions.Store(s.ID, s)
	m.count.Add(1)
	return s
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	return m.sessions.Load(id)
}

// Delete closes and removes a session. Reports whether it existed.
func (m *Manager) Delete(id string) bool {
	s, ok := m.sessions.LoadAndDelete(id)
	if !ok {
		return false
	}
	s.Controller.Close()
	m.count.Add(-1)
	return true
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	return int(m.count.Load())
}

func newSessionID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
