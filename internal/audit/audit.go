// Package audit records security-relevant actions to the backend.
//
// Recording is fire-and-forget: each Record call runs on its own goroutine,
// has no ordering relative to the operation it describes, and can never make
// that operation fail.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/natanjs01/projetopowerbiv1/internal/audit/entity"
	"github.com/natanjs01/projetopowerbiv1/internal/metrics"
	"github.com/natanjs01/projetopowerbiv1/pkg/utilities"
)

// Writer persists entries.
type Writer interface {
	Insert(ctx context.Context, e *entity.Entry) error
}

// Recorder is what the other services depend on.
type Recorder interface {
	Record(ctx context.Context, actorID, reportID string, action entity.Action, details any)
}

type ctxKey struct{}

// WithOrigin attaches the caller's address so entries don't need a lookup.
func WithOrigin(ctx context.Context, addr string) context.Context {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, addr)
}

func originFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// Logger is the detached audit recorder.
type Logger struct {
	enabled bool
	writer  Writer
	locator Locator
	log     *zap.SugaredLogger
	timeout time.Duration
	now     func() time.Time
	newID   func() string
	wg      sync.WaitGroup
}

type Option func(*Logger)

// WithLocator sets the fallback origin lookup.
func WithLocator(l Locator) Option { return func(lg *Logger) { lg.locator = l } }

// WithTimeout bounds a single detached write.
func WithTimeout(d time.Duration) Option { return func(lg *Logger) { lg.timeout = d } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(lg *Logger) { lg.now = now } }

// NewLogger returns a Logger. With enabled=false every Record is a no-op.
func NewLogger(enabled bool, w Writer, log *zap.SugaredLogger, opts ...Option) *Logger {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	l := &Logger{
		enabled: enabled,
		writer:  w,
		log:     log,
		timeout: 10 * time.Second,
		now:     time.Now,
		newID:   utilities.NewSnowflakeID,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record appends an entry in the background. actorID and reportID may be
// empty. details is marshalled to JSON; nil becomes {}.
func (l *Logger) Record(ctx context.Context, actorID, reportID string, action entity.Action, details any) {
	if !l.enabled || l.writer == nil {
		return
	}
	e := &entity.Entry{
		ID:        l.newID(),
		ActorID:   nullable(actorID),
		ReportID:  nullable(reportID),
		Action:    action,
		Details:   marshalDetails(details),
		Timestamp: l.now().UTC(),
	}
	origin := originFromContext(ctx)
	// the request context dies with the response
	bg := context.WithoutCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(bg, l.timeout)
		defer cancel()
		e.Origin = l.resolveOrigin(ctx, origin)
		if err := l.writer.Insert(ctx, e); err != nil {
			metrics.AuditWrites.WithLabelValues("failed").Inc()
			l.log.Warnw("audit write failed", "action", e.Action, "actor", actorID, "err", err)
			return
		}
		metrics.AuditWrites.WithLabelValues("written").Inc()
	}()
}

// Wait blocks until every in-flight Record has finished.
func (l *Logger) Wait() {
	l.wg.Wait()
}

func (l *Logger) resolveOrigin(ctx context.Context, origin string) string {
	if origin != "" {
		return origin
	}
	if l.locator == nil {
		return entity.UnknownOrigin
	}
	addr, err := l.locator.Lookup(ctx)
	if err != nil || addr == "" {
		l.log.Debugw("origin lookup failed", "err", err)
		return entity.UnknownOrigin
	}
	return addr
}

func marshalDetails(details any) json.RawMessage {
	if details == nil {
		return json.RawMessage("{}")
	}
	b, err := json.Marshal(details)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
