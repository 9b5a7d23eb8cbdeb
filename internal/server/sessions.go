package server

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vishwar23/portfolio/internal/contact"
	"github.com/vishwar23/portfolio/internal/section"
)

const sessionCookie = "portfolio_session"

// Session is the page state of one visitor: where they are on the page and
// what they have typed into the contact form.
type Session struct {
	ID      string
	Tracker *section.Tracker
	Contact *contact.Controller

	lastSeen time.Time
}

// close releases the session's timers. The saved draft stays in storage so
// a returning visitor gets it back.
func (s *Session) close() {
	s.Contact.Close()
}

// sessions keeps live Sessions in memory, keyed by cookie value.
type sessions struct {
	mu      sync.Mutex
	live    map[string]*Session
	newFunc func(id string) *Session
	now     func() time.Time
}

func newSessions(newFunc func(id string) *Session) *sessions {
	return &sessions{
		live:    make(map[string]*Session),
		newFunc: newFunc,
		now:     time.Now,
	}
}

// get returns the caller's session, creating it (and setting the cookie)
// when needed. A known cookie whose session was swept is rebuilt under the
// same id, which rehydrates its draft.
func (m *sessions) get(c *gin.Context) *Session {
	id, err := c.Cookie(sessionCookie)
	if err != nil || uuid.Validate(id) != nil {
		id = uuid.NewString()
	}
	c.SetCookie(sessionCookie, id, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.live[id]
	if !ok {
		s = m.newFunc(id)
		m.live[id] = s
	}
	s.lastSeen = m.now()
	return s
}

// sweep closes sessions idle for longer than idle and returns how many
// were dropped.
func (m *sessions) sweep(idle time.Duration) int {
	m.mu.Lock()
	var stale []*Session
	cutoff := m.now().Add(-idle)
	for id, s := range m.live {
		if s.lastSeen.Before(cutoff) {
			stale = append(stale, s)
			delete(m.live, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	return len(stale)
}

func (m *sessions) closeAll() {
	m.mu.Lock()
	all := m.live
	m.live = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}

func (m *sessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
