package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/devtools-inspector/internal/launcher"
	"github.com/shehryarbajwa/devtools-inspector/pkg/models"
)

const (
	defaultTimeout = 3600
	minTimeout     = 60
	maxTimeout     = 21600
)

// Launcher starts and stops containerized debuggees. *runtimes.Manager
// implements it.
type Launcher interface {
	Launch(ctx context.Context, runtime string, opts launcher.LaunchOptions) (*launcher.Instance, error)
	Stop(ctx context.Context, containerID string) error
}

// Options configures a Manager.
type Options struct {
	MaxSessions int64
	Debug       bool
}

// Manager handles all session operations
type Manager struct {
	sessions   sync.Map // sessionID -> *models.Session
	inspectors sync.Map // sessionID -> *Inspector
	slots      *semaphore.Weighted
	launcher   Launcher
	debug      bool
	mu         sync.Mutex // guards session status transitions

	// timeoutUnit scales session timeouts; tests shorten it.
	timeoutUnit time.Duration
}

// NewManager creates a new session manager. l may be nil, in which case
// only attaching to running debuggees is supported.
func NewManager(l Launcher, opts Options) *Manager {
	if opts.MaxSessions < 1 {
		opts.MaxSessions = 10
	}
	return &Manager{
		slots:       semaphore.NewWeighted(opts.MaxSessions),
		launcher:    l,
		debug:       opts.Debug,
		timeoutUnit: time.Second,
	}
}

// CreateSession attaches to a debuggee, launching one first when the
// request carries a script.
func (m *Manager) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error) {
	// Validate request
	if req.TargetURL == "" && req.Script == "" {
		return nil, fmt.Errorf("%w: targetUrl or script is required", ErrInvalidRequest)
	}
	if req.TargetURL != "" && req.Script != "" {
		return nil, fmt.Errorf("%w: targetUrl and script are mutually exclusive", ErrInvalidRequest)
	}

	// Apply defaults
	if req.Timeout == 0 {
		req.Timeout = defaultTimeout
	}
	if req.Timeout < minTimeout || req.Timeout > maxTimeout {
		return nil, fmt.Errorf("%w: timeout must be between %d and %d seconds", ErrInvalidRequest, minTimeout, maxTimeout)
	}
	if req.Script != "" && m.launcher == nil {
		return nil, ErrNoLauncher
	}

	// Check concurrency limit
	if !m.slots.TryAcquire(1) {
		return nil, ErrConcurrencyLimit
	}

	sessionID := uuid.New().String()
	now := time.Now()

	session := &models.Session{
		ID:          sessionID,
		Status:      models.StatusRunning,
		Runtime:     req.Runtime,
		TargetURL:   req.TargetURL,
		StartedAt:   now,
		ExpiresAt:   now.Add(time.Duration(req.Timeout) * m.timeoutUnit),
		Timeout:     req.Timeout,
		ObjectGroup: sessionID,
	}

	// Launch a debuggee if a script was given
	if req.Script != "" {
		instance, err := m.launcher.Launch(ctx, req.Runtime, launcher.LaunchOptions{
			SessionID: sessionID,
			Script:    req.Script,
		})
		if err != nil {
			m.slots.Release(1)
			return nil, fmt.Errorf("failed to launch debuggee: %w", err)
		}
		session.ContainerID = instance.ContainerID
		session.Runtime = instance.Runtime
		session.TargetURL = instance.DebuggerURL
		log.Printf("🐳 Launched %s debuggee for session %s", instance.Runtime, shortID(sessionID))
	}

	inspector := newInspector(sessionID)
	if err := inspector.attach(ctx, session.TargetURL, m.debug); err != nil {
		m.stopContainer(session.ContainerID)
		m.slots.Release(1)
		return nil, fmt.Errorf("failed to attach to debuggee: %w", err)
	}

	// Store session
	m.sessions.Store(session.ID, session)
	m.inspectors.Store(session.ID, inspector)
	log.Printf("✅ Attached session %s to %s", shortID(sessionID), session.TargetURL)

	go m.handleTimeout(session.ID, time.Duration(req.Timeout)*m.timeoutUnit)
	go m.watchConnection(session.ID, inspector)

	return m.snapshot(session), nil
}

// GetSession retrieves a session by ID
func (m *Manager) GetSession(id string) (*models.Session, error) {
	value, ok := m.sessions.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return m.snapshot(value.(*models.Session)), nil
}

// snapshot copies a session under the status lock.
func (m *Manager) snapshot(s *models.Session) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	return &c
}

// Inspector returns the debugging surface of a running session
func (m *Manager) Inspector(id string) (*Inspector, error) {
	session, err := m.GetSession(id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.StatusRunning {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotRunning, session.Status)
	}

	value, ok := m.inspectors.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotRunning, id)
	}
	return value.(*Inspector), nil
}

// ListSessions returns all sessions, optionally filtered by status
func (m *Manager) ListSessions(status models.SessionStatus) []*models.Session {
	sessions := []*models.Session{}

	m.sessions.Range(func(key, value interface{}) bool {
		session := m.snapshot(value.(*models.Session))

		if status != "" && session.Status != status {
			return true
		}

		sessions = append(sessions, session)
		return true
	})

	return sessions
}

// DeleteSession detaches from the debuggee and marks the session completed
func (m *Manager) DeleteSession(id string) error {
	if _, err := m.GetSession(id); err != nil {
		return err
	}
	if !m.terminate(id, models.StatusCompleted, "") {
		return fmt.Errorf("%w: %s", ErrSessionNotRunning, id)
	}
	return nil
}

// Close terminates every running session.
func (m *Manager) Close() {
	m.sessions.Range(func(key, value interface{}) bool {
		m.terminate(key.(string), models.StatusCompleted, "")
		return true
	})
}

// terminate moves a running session to status and releases everything it
// holds. It reports false if the session was no longer running.
func (m *Manager) terminate(id string, status models.SessionStatus, reason string) bool {
	value, ok := m.sessions.Load(id)
	if !ok {
		return false
	}
	session := value.(*models.Session)

	m.mu.Lock()
	if session.Status != models.StatusRunning {
		m.mu.Unlock()
		return false
	}
	session.Status = status
	session.Error = reason
	m.mu.Unlock()

	if value, ok := m.inspectors.LoadAndDelete(id); ok {
		log.Printf("🔌 Closing connection for session %s", shortID(id))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		value.(*Inspector).close(ctx)
		cancel()
	}

	m.stopContainer(session.ContainerID)

	// Release concurrency slot
	m.slots.Release(1)
	return true
}

func (m *Manager) stopContainer(containerID string) {
	if containerID == "" || m.launcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.launcher.Stop(ctx, containerID); err != nil {
		log.Printf("⚠️  Failed to stop container %s: %v", shortID(containerID), err)
	}
}

// handleTimeout automatically terminates a session after its timeout
func (m *Manager) handleTimeout(id string, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	<-timer.C

	if m.terminate(id, models.StatusTimedOut, "") {
		log.Printf("⏱️  Session %s timed out", shortID(id))
	}
}

// watchConnection marks the session failed when the debuggee goes away.
func (m *Manager) watchConnection(id string, inspector *Inspector) {
	<-inspector.Conn().Done()

	err := inspector.Conn().Err()
	if m.terminate(id, models.StatusError, err.Error()) {
		log.Printf("❌ Session %s lost its debuggee: %v", shortID(id), err)
	}
}
