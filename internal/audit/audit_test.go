package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natanjs01/projetopowerbiv1/internal/audit/entity"
)

type memWriter struct {
	mu      sync.Mutex
	entries []*entity.Entry
	err     error
}

func (m *memWriter) Insert(_ context.Context, e *entity.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

type stubLocator struct {
	addr string
	err  error
}

func (s stubLocator) Lookup(context.Context) (string, error) { return s.addr, s.err }

func TestRecordDisabledIsNoop(t *testing.T) {
	w := &memWriter{}
	l := NewLogger(false, w, nil)
	l.Record(context.Background(), "u-1", "", entity.ActionLogin, nil)
	l.Wait()
	assert.Empty(t, w.entries)
}

func TestRecordWritesEntry(t *testing.T) {
	w := &memWriter{}
	fixed := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	l := NewLogger(true, w, nil, WithLocator(stubLocator{addr: "203.0.113.7"}), WithClock(func() time.Time { return fixed }))

	l.Record(context.Background(), "u-1", "r-9", entity.ActionViewReport, map[string]string{"email": "a@b.c"})
	l.Wait()

	require.Len(t, w.entries, 1)
	e := w.entries[0]
	assert.Equal(t, "u-1", *e.ActorID)
	assert.Equal(t, "r-9", *e.ReportID)
	assert.Equal(t, entity.ActionViewReport, e.Action)
	assert.JSONEq(t, `{"email":"a@b.c"}`, string(e.Details))
	assert.Equal(t, "203.0.113.7", e.Origin)
	assert.Equal(t, fixed, e.Timestamp)
	assert.NotEmpty(t, e.ID)
}

func TestRecordNullableFieldsAndEmptyDetails(t *testing.T) {
	w := &memWriter{}
	l := NewLogger(true, w, nil)
	l.Record(context.Background(), "", "", entity.ActionLogout, nil)
	l.Wait()
	require.Len(t, w.entries, 1)
	assert.Nil(t, w.entries[0].ActorID)
	assert.Nil(t, w.entries[0].ReportID)
	assert.JSONEq(t, `{}`, string(w.entries[0].Details))
}

func TestRecordPrefersRequestOrigin(t *testing.T) {
	w := &memWriter{}
	l := NewLogger(true, w, nil, WithLocator(stubLocator{addr: "198.51.100.1"}))
	ctx := WithOrigin(context.Background(), "192.0.2.10")
	l.Record(ctx, "u-1", "", entity.ActionLogin, nil)
	l.Wait()
	require.Len(t, w.entries, 1)
	assert.Equal(t, "192.0.2.10", w.entries[0].Origin)
}

func TestRecordLookupFailureIsUnknown(t *testing.T) {
	w := &memWriter{}
	l := NewLogger(true, w, nil, WithLocator(stubLocator{err: errors.New("offline")}))
	l.Record(context.Background(), "u-1", "", entity.ActionLogin, nil)
	l.Wait()
	require.Len(t, w.entries, 1)
	assert.Equal(t, entity.UnknownOrigin, w.entries[0].Origin)
}

func TestRecordSurvivesCanceledRequest(t *testing.T) {
	w := &memWriter{}
	l := NewLogger(true, w, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Record(ctx, "u-1", "", entity.ActionLogout, nil)
	l.Wait()
	assert.Len(t, w.entries, 1)
}

func TestRecordWriteFailureIsSwallowed(t *testing.T) {
	w := &memWriter{err: errors.New("insert failed")}
	l := NewLogger(true, w, nil)
	assert.NotPanics(t, func() {
		l.Record(context.Background(), "u-1", "", entity.ActionLogin, nil)
		l.Wait()
	})
	assert.Empty(t, w.entries)
}

func TestIpifyLocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"203.0.113.50"}`))
	}))
	defer srv.Close()

	addr, err := NewIpifyLocator(srv.URL).Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.50", addr)
}

func TestIpifyLocatorBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewIpifyLocator(srv.URL).Lookup(context.Background())
	assert.Error(t, err)
}

type stubReader struct {
	gotLimit int
	err      error
}

func (s *stubReader) Recent(_ context.Context, limit int) ([]entity.EntryView, error) {
	s.gotLimit = limit
	return []entity.EntryView{}, s.err
}

func TestServiceRecentClampsLimit(t *testing.T) {
	r := &stubReader{}
	svc := NewService(r)
	_, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, r.gotLimit)

	_, err = svc.Recent(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, r.gotLimit)

	r.err = errors.New("down")
	_, err = svc.Recent(context.Background(), 5)
	assert.Error(t, err)
}

func TestHandlerRecentPassesLimit(t *testing.T) {
	r := &stubReader{}
	rec := httptest.NewRecorder()
	NewHandler(NewService(r)).Recent(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs?limite=20", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, r.gotLimit)
	assert.JSONEq(t, `{"ok":true,"logs":[]}`, rec.Body.String())
}
