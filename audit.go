package goPortal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goPortal/apiclient"
	internalaudit "github.com/MrEthical07/goPortal/internal/audit"
	"github.com/MrEthical07/goPortal/router"
	"github.com/MrEthical07/goPortal/session"
)

// AuditEvent is a structured audit record emitted by the engine. It never
// carries tokens or passwords.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a [slog.Logger].
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink]. A nil logger means slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLogout             = "logout"
	auditEventSessionInvalidated = "session_invalidated"
	auditEventNavigationRedirect = "navigation_redirect"
)

// AuditErrorCode is the coarse error classification stored in
// AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrRejected     AuditErrorCode = "rejected"
	auditErrBadRequest   AuditErrorCode = "bad_request"
	auditErrBackend      AuditErrorCode = "backend_error"
	auditErrMissingToken AuditErrorCode = "missing_token"
	auditErrTokenStorage AuditErrorCode = "token_storage"
	auditErrCanceled     AuditErrorCode = "canceled"
	auditErrTransport    AuditErrorCode = "transport_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitNavigationAudit(d router.Decision) {
	if e == nil || e.audit == nil || d.Allowed() {
		return
	}
	reason := "auth_required"
	if d.Reason == router.ReasonAuthenticated {
		reason = "authenticated"
	}
	e.audit.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventNavigationRedirect,
		Path:      d.Path,
		Success:   true,
		Metadata:  map[string]string{"reason": reason},
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenStorage), errors.Is(err, session.ErrRedisUnavailable):
		return auditErrTokenStorage
	case errors.Is(err, apiclient.ErrMissingToken):
		return auditErrMissingToken
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	}

	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return auditErrRejected
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return auditErrBackend
		default:
			return auditErrBadRequest
		}
	}
	return auditErrTransport
}
