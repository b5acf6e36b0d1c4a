package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/floorcheck/errors"
	fctest "github.com/teranos/floorcheck/internal/testing"
	"github.com/teranos/floorcheck/internal/util"
)

func TestCacheStoreSaveAndGet(t *testing.T) {
	conn := fctest.CreateMigratedTestDB(t)
	cache := NewCacheStore(conn)

	e := &Employee{
		CardID:          "CARD-001",
		PersonnelNumber: "4711",
		FullName:        "Anna Weber",
		Department:      "Milling",
		RoleID:          util.Ptr(int64(1)),
	}
	require.NoError(t, cache.Save(e))

	got, err := cache.GetByCard("CARD-001")
	require.NoError(t, err)
	assert.Equal(t, "Anna Weber", got.FullName)
	assert.Equal(t, "4711", got.PersonnelNumber)
	require.NotNil(t, got.RoleID)
	assert.Equal(t, int64(1), *got.RoleID)
	assert.False(t, got.SyncedAt.IsZero())

	byNum, err := cache.GetByPersonnelNumber("4711")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byNum.ID)
}

func TestCacheStoreUpsert(t *testing.T) {
	conn := fctest.CreateMigratedTestDB(t)
	cache := NewCacheStore(conn)

	require.NoError(t, cache.Save(&Employee{CardID: "C1", PersonnelNumber: "1", FullName: "Old Name"}))
	require.NoError(t, cache.Save(&Employee{CardID: "C1", PersonnelNumber: "1", FullName: "New Name"}))

	got, err := cache.GetByCard("C1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.FullName)

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM employees`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCacheStoreNotFound(t *testing.T) {
	conn := fctest.CreateMigratedTestDB(t)

	_, err := NewCacheStore(conn).GetByCard("unknown")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestHTTPResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/employees/by-card/CARD-001":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"card_id":"CARD-001","personnel_number":"4711","full_name":"Anna Weber","role_id":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	resolver := NewHTTPResolver(srv.URL, "secret", time.Second)

	e, err := resolver.ResolveEmployee(context.Background(), "CARD-001")
	require.NoError(t, err)
	assert.Equal(t, "Anna Weber", e.FullName)
	require.NotNil(t, e.RoleID)
	assert.Equal(t, int64(1), *e.RoleID)

	_, err = resolver.ResolveEmployee(context.Background(), "CARD-404")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

// fakeResolver scripts remote behavior for service tests.
type fakeResolver struct {
	employee *Employee
	err      error
	calls    int
}

func (f *fakeResolver) ResolveEmployee(ctx context.Context, cardID string) (*Employee, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.employee, nil
}

func TestServiceCacheHitSkipsRemote(t *testing.T) {
	conn := fctest.CreateMigratedTestDB(t)
	cache := NewCacheStore(conn)
	require.NoError(t, cache.Save(&Employee{CardID: "C1", PersonnelNumber: "1", FullName: "Cached"}))

	remote := &fakeResolver{}
	svc := NewService(cache, remote, time.Hour)

	e, err := svc.ResolveEmployee(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "Cached", e.FullName)
	assert.Zero(t, remote.calls)
}

func TestServiceMissFetchesAndCaches(t *testing.T) {
	conn := fctest.CreateMigratedTestDB(t)
	cache := NewCacheStore(conn)
	remote := &fakeResolver{employee: &Employee{
		CardID: "C2", PersonnelNumber: "2", FullName: "Fresh From HR",
	}}
	svc := NewService(cache, remote, time.Hour)

	e, err := svc.ResolveEmployee(context.Background(), "C2")
	require.NoError(t, err)
	assert.Equal(t, "Fresh From HR", e.FullName)
	assert.Equal(t, 1, remote.calls)

	// Written back: second resolve comes from cache
	e, err = svc.ResolveEmployee(context.Background(), "C2")
	require.NoError(t, err)
	assert.Equal(t, "Fresh From HR", e.FullName)
	assert.Equal(t, 1, remote.calls)
}

func TestServiceServesStaleOnOutage(t *testing.T) {
	conn := fctest.CreateMigratedTestDB(t)
	cache := NewCacheStore(conn)
	require.NoError(t, cache.Save(&Employee{CardID: "C3", PersonnelNumber: "3", FullName: "Stale But Valid"}))

	remote := &fakeResolver{err: errors.New("connection refused")}
	// Zero-width TTL: the cached row is always stale
	svc := NewService(cache, remote, time.Nanosecond)

	e, err := svc.ResolveEmployee(context.Background(), "C3")
	require.NoError(t, err)
	assert.Equal(t, "Stale But Valid", e.FullName)
	assert.Equal(t, 1, remote.calls)
}

func TestServiceUnknownCard(t *testing.T) {
	conn := fctest.CreateMigratedTestDB(t)
	remote := &fakeResolver{err: errors.NewNotFoundError("employee for card %s not found", "C4")}
	svc := NewService(NewCacheStore(conn), remote, time.Hour)

	_, err := svc.ResolveEmployee(context.Background(), "C4")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestServiceOperatorID(t *testing.T) {
	conn := fctest.CreateMigratedTestDB(t)
	cache := NewCacheStore(conn)
	require.NoError(t, cache.Save(&Employee{CardID: "C5", PersonnelNumber: "555", FullName: "Op"}))
	svc := NewService(cache, nil, 0)

	id, err := svc.OperatorID(context.Background(), "555")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = svc.OperatorID(context.Background(), "999")
	assert.True(t, errors.IsNotFound(err))
}
