package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/directory"
	"github.com/teranos/floorcheck/errors"
	fctest "github.com/teranos/floorcheck/internal/testing"
	"github.com/teranos/floorcheck/internal/util"
	"github.com/teranos/floorcheck/maint"
	"github.com/teranos/floorcheck/reader"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)

type fakeSource struct {
	ch chan reader.Event
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan reader.Event, 8)}
}

func (f *fakeSource) Events() <-chan reader.Event { return f.ch }
func (f *fakeSource) Start()                      {}
func (f *fakeSource) Stop()                       { close(f.ch) }

type fakeDirectory struct {
	employees map[string]*directory.Employee
}

func (f *fakeDirectory) ResolveEmployee(ctx context.Context, cardID string) (*directory.Employee, error) {
	e, ok := f.employees[cardID]
	if !ok {
		return nil, errors.NewNotFoundError("employee for card %s not found", cardID)
	}
	return e, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	sessions []*Session
	tasks    [][]maint.DueTask
}

func (n *recordingNotifier) SessionChanged(s *Session) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessions = append(n.sessions, s)
}

func (n *recordingNotifier) TasksChanged(tasks []maint.DueTask) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tasks = append(n.tasks, tasks)
}

func (n *recordingNotifier) ReaderState(string) {}

func (n *recordingNotifier) lastSession() (*Session, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sessions) == 0 {
		return nil, false
	}
	return n.sessions[len(n.sessions)-1], true
}

func newFixture(t *testing.T, sectors []int64) (*Manager, *fakeSource, *recordingNotifier, *maint.Recorder, *maint.AssignmentStore) {
	t.Helper()

	conn := fctest.CreateMigratedTestDB(t)
	require.NoError(t, catalog.Seed(conn))

	dir := &fakeDirectory{employees: map[string]*directory.Employee{
		"CARD-OP": {
			ID: 7, CardID: "CARD-OP", PersonnelNumber: "4711",
			FullName: "Anna Weber", RoleID: util.Ptr(int64(catalog.RoleOperator)),
		},
		"CARD-ADMIN": {
			ID: 8, CardID: "CARD-ADMIN", PersonnelNumber: "1000",
			FullName: "Boss", RoleID: util.Ptr(int64(catalog.RoleAdministrator)),
		},
		"CARD-NOROLE": {
			ID: 9, CardID: "CARD-NOROLE", PersonnelNumber: "2000", FullName: "Ghost",
		},
	}}

	source := newFakeSource()
	notifier := &recordingNotifier{}

	m := NewManager(Config{
		Directory: dir,
		Resolver:  maint.NewResolver(conn),
		Source:    source,
		Notifier:  notifier,
		Sectors:   sectors,
		Now:       func() time.Time { return testNow },
	})
	m.Start()
	t.Cleanup(m.Stop)

	return m, source, notifier, maint.NewRecorder(conn), maint.NewAssignmentStore(conn)
}

func seedTask(t *testing.T, assignments *maint.AssignmentStore, workID, sectorID int64) int64 {
	t.Helper()
	id, err := assignments.Create(&maint.Assignment{
		WorkID: workID, FreqID: catalog.FreqEveryShift,
		RoleID: catalog.RoleOperator, WorkTypeID: catalog.WorkTypeRoutine, SectorID: sectorID,
	})
	require.NoError(t, err)
	return id
}

func TestAuthenticateStartsSession(t *testing.T) {
	m, source, _, _, assignments := newFixture(t, []int64{1, 2})
	seedTask(t, assignments, 1, 1)

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-OP"}

	require.Eventually(t, func() bool { return m.Current() != nil }, 2*time.Second, 10*time.Millisecond)

	sess := m.Current()
	assert.Equal(t, "4711", sess.PersonnelNumber)
	assert.Equal(t, "Anna Weber", sess.FullName)
	assert.Equal(t, int64(1), sess.SectorID)
	assert.Equal(t, testNow, sess.AuthenticatedAt)
	assert.NotEqual(t, sess.ID.String(), "00000000-0000-0000-0000-000000000000")

	tasks := m.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Check oil level in hydraulic unit", tasks[0].WorkName)
}

func TestUnknownCardRejected(t *testing.T) {
	m, source, _, _, assignments := newFixture(t, []int64{1})
	seedTask(t, assignments, 1, 1)

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-UNKNOWN"}

	time.Sleep(100 * time.Millisecond)
	assert.Nil(t, m.Current())
}

func TestEmployeeWithoutRoleRejected(t *testing.T) {
	m, source, _, _, assignments := newFixture(t, []int64{1})
	seedTask(t, assignments, 1, 1)

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-NOROLE"}

	time.Sleep(100 * time.Millisecond)
	assert.Nil(t, m.Current())
}

func TestCardRemovedEndsSession(t *testing.T) {
	m, source, notifier, _, assignments := newFixture(t, []int64{1})
	seedTask(t, assignments, 1, 1)

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-OP"}
	require.Eventually(t, func() bool { return m.Current() != nil }, 2*time.Second, 10*time.Millisecond)

	source.ch <- reader.Event{Type: reader.EventRemoved}
	require.Eventually(t, func() bool { return m.Current() == nil }, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, m.Tasks())
	last, ok := notifier.lastSession()
	require.True(t, ok)
	assert.Nil(t, last)
}

func TestSectorFailover(t *testing.T) {
	m, source, _, _, assignments := newFixture(t, []int64{1, 2})
	// Work only in sector 2; home sector 1 is empty
	seedTask(t, assignments, 1, 2)

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-OP"}

	require.Eventually(t, func() bool {
		s := m.Current()
		return s != nil && s.SectorID == 2
	}, 2*time.Second, 10*time.Millisecond)

	tasks := m.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(2), tasks[0].SectorID)
}

func TestNoWorkAnywhereEndsSession(t *testing.T) {
	m, source, notifier, _, _ := newFixture(t, []int64{1, 2})

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-OP"}

	// Authenticated then immediately ended: last notification is nil
	require.Eventually(t, func() bool {
		last, ok := notifier.lastSession()
		return ok && last == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, m.Current())
}

func TestAdminGetsNoTasks(t *testing.T) {
	m, source, notifier, _, assignments := newFixture(t, []int64{1})
	seedTask(t, assignments, 1, 1)

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-ADMIN"}

	// Admins resolve to an empty list everywhere, so the session ends
	require.Eventually(t, func() bool {
		last, ok := notifier.lastSession()
		return ok && last == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, m.Current())
}

func TestRefreshAfterCompletion(t *testing.T) {
	m, source, _, recorder, assignments := newFixture(t, []int64{1})
	id := seedTask(t, assignments, 1, 1)

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-OP"}
	require.Eventually(t, func() bool { return len(m.Tasks()) == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err := recorder.RecordExecution(context.Background(), id, 7, maint.ActionComplete, "", testNow)
	require.NoError(t, err)

	m.Refresh()

	// Last task done, nowhere to fail over: session ends
	require.Eventually(t, func() bool { return m.Current() == nil }, 2*time.Second, 10*time.Millisecond)
}

func TestTaskResolveDroppedWhileInFlight(t *testing.T) {
	m, source, _, _, assignments := newFixture(t, []int64{1})
	seedTask(t, assignments, 1, 1)

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-OP"}
	require.Eventually(t, func() bool { return len(m.Tasks()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Hold the in-flight flag: every resolve trigger is dropped, whether it
	// comes from Refresh or from a fresh authentication
	require.True(t, m.refreshing.CompareAndSwap(false, true))

	seedTask(t, assignments, 2, 1)
	m.Refresh()
	assert.Len(t, m.Tasks(), 1)

	source.ch <- reader.Event{Type: reader.EventDetected, CardID: "CARD-OP"}
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, m.Tasks(), 1)

	// Released, the next trigger resolves the full list
	m.refreshing.Store(false)
	m.Refresh()
	require.Eventually(t, func() bool { return len(m.Tasks()) == 2 }, 2*time.Second, 10*time.Millisecond)
}
