// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings.
const (
	ModeAll = "all" // store + zap
	ModeDB  = "db"  // store only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// ValidMode reports whether s is a known destination setting.
func ValidMode(s string) bool {
	switch s {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config holds audit logging configuration.
type Config struct {
	// Workflow controls membership, content and transfer transitions.
	Workflow string
	// Security controls denied actions.
	Security string
}

// Sink persists audit events. audit.Store (Mongo) and boltstore.AuditStore
// both satisfy it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// Logger provides convenience methods for logging audit events.
// It logs to the sink and to structured logs (via zap).
type Logger struct {
	sink   Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. sink may be nil, in which case only zap
// output is produced.
func New(sink Sink, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		sink:   sink,
		zapLog: zapLog,
		config: config,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request context                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// RequestInfo is the caller context recorded with each event.
type RequestInfo struct {
	IP        string
	UserAgent string
	RequestID string
}

type ctxKey struct{}

// WithRequestInfo returns ctx carrying info.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

func requestInfo(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(ctxKey{}).(RequestInfo)
	return info
}

// CaptureRequest stores the request's client info in its context so that
// events logged deeper in the call chain carry it. Mount after
// middleware.RequestID and middleware.RealIP.
func CaptureRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequestInfo(r.Context(), RequestInfo{
			IP:        getClientIP(r),
			UserAgent: r.UserAgent(),
			RequestID: middleware.GetReqID(r.Context()),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

/*─────────────────────────────────────────────────────────────────────────────*
| Core                                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", event.SubjectID))
	}
	if event.EntityID != "" {
		fields = append(fields, zap.String("entity_id", event.EntityID))
	}
	if event.OrgID != nil {
		fields = append(fields, zap.String("org_id", event.OrgID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) setting(category string) string {
	switch category {
	case audit.CategoryMembership, audit.CategoryContent, audit.CategoryTransfer:
		return l.config.Workflow
	case audit.CategorySecurity:
		return l.config.Security
	}
	return ModeAll
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.setting(event.Category)
	if setting == "" {
		setting = ModeAll
	}
	if setting == ModeOff {
		return
	}

	info := requestInfo(ctx)
	if event.IP == "" {
		event.IP = info.IP
	}
	if event.UserAgent == "" {
		event.UserAgent = info.UserAgent
	}
	if event.RequestID == "" {
		event.RequestID = info.RequestID
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}

	if (setting == ModeAll || setting == ModeDB) && l.sink != nil {
		if err := l.sink.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// Query reads back stored events. Without a sink it returns nothing.
func (l *Logger) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	if l == nil || l.sink == nil {
		return nil, nil
	}
	return l.sink.Query(ctx, filter)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Workflow events                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// Transition describes one committed workflow change.
type Transition struct {
	EventType string
	ActorID   string
	OrgID     primitive.ObjectID
	SubjectID string
	EntityID  string
	Details   map[string]string
}

// Membership logs an organization or join-request transition.
func (l *Logger) Membership(ctx context.Context, t Transition) {
	l.transition(ctx, audit.CategoryMembership, t)
}

// Content logs a publication transition.
func (l *Logger) Content(ctx context.Context, t Transition) {
	l.transition(ctx, audit.CategoryContent, t)
}

// Transfer logs a manager-transfer transition.
func (l *Logger) Transfer(ctx context.Context, t Transition) {
	l.transition(ctx, audit.CategoryTransfer, t)
}

func (l *Logger) transition(ctx context.Context, category string, t Transition) {
	var orgID *primitive.ObjectID
	if !t.OrgID.IsZero() {
		id := t.OrgID
		orgID = &id
	}
	l.Log(ctx, audit.Event{
		Category:  category,
		EventType: t.EventType,
		OrgID:     orgID,
		ActorID:   t.ActorID,
		SubjectID: t.SubjectID,
		EntityID:  t.EntityID,
		Success:   true,
		Details:   t.Details,
	})
}

// Denied logs an action the authorization guard refused.
func (l *Logger) Denied(ctx context.Context, actorID string, orgID primitive.ObjectID, action, reason string) {
	var oid *primitive.ObjectID
	if !orgID.IsZero() {
		oid = &orgID
	}
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventActionDenied,
		OrgID:         oid,
		ActorID:       actorID,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"action": action},
	})
}

// Session logs a cookie session being opened or closed.
func (l *Logger) Session(ctx context.Context, eventType, actorID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySecurity,
		EventType: eventType,
		ActorID:   actorID,
		Success:   true,
	})
}
