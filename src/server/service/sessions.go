package service

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"

	"github.com/apimgr/weatherio/src/pipeline"
	"github.com/apimgr/weatherio/src/render"
	"github.com/apimgr/weatherio/src/route"
	"github.com/apimgr/weatherio/src/search"
	"github.com/apimgr/weatherio/src/server/metrics"
	"github.com/apimgr/weatherio/src/utils"
)

// DefaultIdleTimeout is how long a session may stay silent before it is evicted
const DefaultIdleTimeout = 30 * time.Minute

// SessionLogger is the subset of the application logger sessions write to
type SessionLogger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Settings are the reloadable parts of session behavior
type Settings struct {
	// DefaultHash is followed when the position of the visitor is unknown
	DefaultHash string
	Debounce    time.Duration
}

// ManagerConfig wires a SessionManager
type ManagerConfig struct {
	Source      pipeline.Source
	Geocoder    search.Geocoder
	HTML        *render.HTML
	Locator     Locator
	Logger      SessionLogger
	IdleTimeout time.Duration
	Settings    Settings
}

// SessionManager keeps the open sessions in a registry with idle eviction
type SessionManager struct {
	source   pipeline.Source
	geocoder search.Geocoder
	html     *render.HTML
	locator  Locator
	logger   SessionLogger
	idle     time.Duration
	sessions *cache.Cache

	mu       sync.RWMutex
	settings Settings
}

// NewSessionManager creates a session registry
func NewSessionManager(cfg ManagerConfig) *SessionManager {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewStdLogger(false)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Settings.DefaultHash == "" {
		cfg.Settings.DefaultHash = route.DefaultHash
	}
	if cfg.Settings.Debounce <= 0 {
		cfg.Settings.Debounce = search.DefaultDelay
	}

	m := &SessionManager{
		source:   cfg.Source,
		geocoder: cfg.Geocoder,
		html:     cfg.HTML,
		locator:  cfg.Locator,
		logger:   cfg.Logger,
		idle:     cfg.IdleTimeout,
		settings: cfg.Settings,
		sessions: cache.New(cfg.IdleTimeout, cfg.IdleTimeout/2),
	}

	// Runs on Delete and on expiry. Close reports true only the first time,
	// so a true here means the janitor found an idle session.
	m.sessions.OnEvicted(func(id string, v interface{}) {
		s := v.(*Session)
		if s.Close() {
			metrics.SessionsEvicted.Inc()
			m.logger.Info("Evicted idle session %s", id)
		}
		metrics.SessionsActive.Dec()
	})
	return m
}

// Open creates a session for a client. conn may be nil when the caller
// drives the session through Handle and Send.
func (m *SessionManager) Open(conn *websocket.Conn, remoteIP net.IP) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	settings := m.Settings()

	s := &Session{
		ID:       uuid.New().String(),
		RemoteIP: remoteIP,
		manager:  m,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.pipeline = pipeline.New(m.source, &display{s: s, html: m.html}, pipeline.WithLogger(m.logger))
	s.searcher = search.New(m.geocoder, &resultList{s: s, html: m.html},
		search.WithDelay(settings.Debounce),
		search.WithLogger(m.logger),
		search.WithOnSelect(s.selected),
	)

	m.sessions.Set(s.ID, s, cache.DefaultExpiration)
	metrics.SessionsActive.Inc()
	m.logger.Debug("Session %s opened from %s (total: %d)", s.ID, remoteIP, m.Count())
	return s
}

// Serve runs the pumps of a websocket session until the client goes away
func (m *SessionManager) Serve(conn *websocket.Conn, remoteIP net.IP) {
	s := m.Open(conn, remoteIP)
	go s.WritePump()
	s.ReadPump()
}

// Touch extends the idle deadline of s
func (m *SessionManager) Touch(s *Session) {
	if _, ok := m.sessions.Get(s.ID); ok {
		m.sessions.Set(s.ID, s, cache.DefaultExpiration)
	}
}

// Remove closes s and drops it from the registry
func (m *SessionManager) Remove(s *Session) {
	s.Close()
	m.sessions.Delete(s.ID)
}

// Get returns an open session by ID
func (m *SessionManager) Get(id string) (*Session, bool) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Count returns the number of open sessions
func (m *SessionManager) Count() int {
	return m.sessions.ItemCount()
}

// Settings returns the current settings
func (m *SessionManager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Apply swaps the settings and updates the debounce delay of open sessions
func (m *SessionManager) Apply(settings Settings) {
	if settings.DefaultHash == "" {
		settings.DefaultHash = route.DefaultHash
	}
	if settings.Debounce <= 0 {
		settings.Debounce = search.DefaultDelay
	}

	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()

	for _, item := range m.sessions.Items() {
		item.Object.(*Session).searcher.SetDelay(settings.Debounce)
	}
}

// Sweep evicts expired sessions now and returns the number still open
func (m *SessionManager) Sweep() int {
	m.sessions.DeleteExpired()
	n := m.sessions.ItemCount()
	metrics.SessionsActive.Set(float64(n))
	return n
}

// Stop closes every session
func (m *SessionManager) Stop() {
	for _, item := range m.sessions.Items() {
		m.Remove(item.Object.(*Session))
	}
}
