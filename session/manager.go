package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/floorcheck/directory"
	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/logger"
	"github.com/teranos/floorcheck/maint"
	"github.com/teranos/floorcheck/reader"
)

// Notifier receives session state changes for pushing to kiosk clients.
// The server's broadcast hub implements this; keeping it an interface here
// avoids a dependency from session to server.
type Notifier interface {
	SessionChanged(s *Session)
	TasksChanged(tasks []maint.DueTask)
	ReaderState(state string)
}

// nopNotifier is used when no notifier is wired.
type nopNotifier struct{}

func (nopNotifier) SessionChanged(*Session)      {}
func (nopNotifier) TasksChanged([]maint.DueTask) {}
func (nopNotifier) ReaderState(string)           {}

// Manager consumes reader events and maintains the kiosk's session. All
// transitions happen on one goroutine; reads go through a mutex-guarded
// snapshot.
type Manager struct {
	dir      directory.Resolver
	resolver *maint.Resolver
	source   reader.Source
	notifier Notifier
	sectors  []int64 // candidate sectors in failover order; first is home
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	current *Session
	tasks   []maint.DueTask

	// single-flight guard on task re-resolution
	refreshing atomic.Bool
}

// Config wires a Manager.
type Config struct {
	Directory directory.Resolver
	Resolver  *maint.Resolver
	Source    reader.Source
	Notifier  Notifier
	Sectors   []int64
	Now       func() time.Time // defaults to time.Now
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		dir:      cfg.Directory,
		resolver: cfg.Resolver,
		source:   cfg.Source,
		notifier: notifier,
		sectors:  cfg.Sectors,
		now:      now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetNotifier replaces the notifier. Call before Start; the server hub is
// constructed after the manager, so it wires itself in afterwards.
func (m *Manager) SetNotifier(n Notifier) {
	if n != nil {
		m.notifier = n
	}
}

// Start begins consuming reader events.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.run()
	logger.Logger.Infow("Session manager started", "sectors", m.sectors)
}

// Stop tears the manager down. The reader source is stopped by its owner.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	logger.Logger.Infow("Session manager stopped")
}

func (m *Manager) run() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case ev, ok := <-m.source.Events():
			if !ok {
				return
			}
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev reader.Event) {
	switch ev.Type {
	case reader.EventDetected:
		m.authenticate(ev.CardID)
	case reader.EventRemoved:
		m.end("card removed")
	case reader.EventConnecting:
		m.notifier.ReaderState("connecting")
	case reader.EventError:
		m.notifier.ReaderState("error")
		m.end("reader error")
	}
}

// authenticate resolves the card, builds a fresh session and pins its task
// list, failing over to another sector when the home sector has nothing due.
func (m *Manager) authenticate(cardID string) {
	employee, err := m.dir.ResolveEmployee(m.ctx, cardID)
	if err != nil {
		if errors.IsNotFound(err) {
			logger.Logger.Warnw("Unknown card presented", "card_id", cardID)
		} else {
			logger.Logger.Errorw("Failed to resolve card", "card_id", cardID, "error", err)
		}
		return
	}
	if employee.RoleID == nil {
		logger.Logger.Warnw("Employee has no role, rejecting session",
			"personnel_number", employee.PersonnelNumber)
		return
	}
	if len(m.sectors) == 0 {
		logger.Logger.Errorw("Kiosk has no sector binding, cannot start session")
		return
	}

	sess := Session{
		ID:              uuid.New(),
		OperatorID:      employee.ID,
		PersonnelNumber: employee.PersonnelNumber,
		FullName:        employee.FullName,
		RoleID:          *employee.RoleID,
		SectorID:        m.sectors[0],
		AuthenticatedAt: m.now(),
	}

	m.setSession(&sess)
	m.resolveTasks(&sess)

	logger.Logger.Infow("Session started",
		"session_id", sess.ID,
		"personnel_number", sess.PersonnelNumber,
		"role_id", sess.RoleID,
		"sector_id", m.currentSectorID())
}

// resolveTasks loads the due list for the session's sector, failing over to
// the next candidate sector when it is empty. No sector with work ends the
// session.
//
// Single flight: a resolve arriving while one is in flight is dropped,
// whether it came from authentication or from Refresh. The next state change
// resolves again.
func (m *Manager) resolveTasks(sess *Session) {
	if !m.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer m.refreshing.Store(false)

	now := m.now()

	tasks, err := m.resolver.ResolveDue(m.ctx, sess.RoleID, &sess.SectorID, now)
	if err != nil {
		logger.Logger.Errorw("Failed to resolve due tasks",
			"session_id", sess.ID, "error", err)
		m.setTasks(nil)
		return
	}

	if len(tasks) == 0 {
		next, err := m.resolver.NextSectorWithWork(m.ctx, sess.RoleID, m.sectors, sess.SectorID, now)
		if err != nil {
			logger.Logger.Errorw("Sector failover check failed",
				"session_id", sess.ID, "error", err)
			m.setTasks(nil)
			return
		}
		if next == nil {
			logger.Logger.Infow("No sector has due work, ending session",
				"session_id", sess.ID)
			m.end("no work available")
			return
		}

		moved := sess.WithSector(*next)
		logger.Logger.Infow("Sector failover",
			"session_id", sess.ID,
			"from", sess.SectorID,
			"to", *next)
		m.setSession(&moved)

		tasks, err = m.resolver.ResolveDue(m.ctx, moved.RoleID, &moved.SectorID, now)
		if err != nil {
			logger.Logger.Errorw("Failed to resolve due tasks after failover",
				"session_id", sess.ID, "error", err)
			tasks = nil
		}
	}

	m.setTasks(tasks)
}

// Refresh re-resolves the current session's task list. Concurrent refreshes
// collapse: while one is in flight, further calls are dropped.
func (m *Manager) Refresh() {
	sess := m.Current()
	if sess == nil {
		return
	}
	m.resolveTasks(sess)
}

// end clears the session, if any.
func (m *Manager) end(reason string) {
	m.mu.Lock()
	had := m.current != nil
	var id uuid.UUID
	if had {
		id = m.current.ID
	}
	m.current = nil
	m.tasks = nil
	m.mu.Unlock()

	if !had {
		return
	}
	m.notifier.SessionChanged(nil)
	m.notifier.TasksChanged(nil)
	logger.Logger.Infow("Session ended", "session_id", id, "reason", reason)
}

// Current returns a copy of the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

// Tasks returns the pinned task list for the active session.
func (m *Manager) Tasks() []maint.DueTask {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]maint.DueTask, len(m.tasks))
	copy(tasks, m.tasks)
	return tasks
}

func (m *Manager) setSession(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	m.notifier.SessionChanged(s)
}

func (m *Manager) setTasks(tasks []maint.DueTask) {
	m.mu.Lock()
	m.tasks = tasks
	m.mu.Unlock()
	m.notifier.TasksChanged(tasks)
}

func (m *Manager) currentSectorID() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return 0
	}
	return m.current.SectorID
}
