package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"kindred/internal/platform/metrics"
	id "kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
	"kindred/pkg/platform/sentinel"
	"kindred/pkg/requestcontext"
)

// Push delivers a created notification to the live inbox/push layer.
// Delivery there is best-effort; the stored record is the source of truth.
type Push interface {
	Publish(ctx context.Context, recipientID id.UserID, payload []byte) error
}

// Roster answers which guardians should receive crisis alerts for a child.
// The links side implements this; it is consulted only at dispatch time so
// a revoked link stops alerts immediately.
type Roster interface {
	ActiveCrisisRecipients(ctx context.Context, childID id.UserID) ([]id.UserID, error)
}

// Service is the notification dispatcher. Only the link lifecycle and the
// projection service call Notify; handlers never create notifications
// directly, so every side effect traces to a documented transition.
type Service struct {
	store   Store
	push    Push
	roster  Roster
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, push Push, roster Roster, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, push: push, roster: roster, metrics: m, logger: logger}
}

// Notify creates a notification with read=false. At-least-once: callers may
// retry and produce duplicates; the core never deduplicates (the UI may
// collapse them).
func (s *Service) Notify(ctx context.Context, recipientID id.UserID, role id.Role, typ id.NotificationType, title, message string) error {
	if !typ.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid notification type")
	}
	n := &Notification{
		ID:            id.NewNotificationID(),
		RecipientID:   recipientID,
		RecipientRole: role,
		Type:          typ,
		Title:         title,
		Message:       message,
		Read:          false,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}
	s.metrics.NotificationsSent.WithLabelValues(typ.String()).Inc()
	s.publish(ctx, n)
	return nil
}

func (s *Service) publish(ctx context.Context, n *Notification) {
	if s.push == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal notification for push", "error", err)
		return
	}
	if err := s.push.Publish(ctx, n.RecipientID, payload); err != nil {
		// The record is stored; the inbox catches up on next poll.
		s.logger.WarnContext(ctx, "push publish failed",
			"error", err,
			"notification_id", n.ID.String(),
		)
	}
}

// NotifyGuardiansOfCrisis fans a crisis alert out to every guardian holding
// an active link with the crisis-alerts permission. Returns how many were
// notified; zero recipients is not an error.
func (s *Service) NotifyGuardiansOfCrisis(ctx context.Context, childID id.UserID, title, message string) (int, error) {
	if s.roster == nil {
		return 0, nil
	}
	recipients, err := s.roster.ActiveCrisisRecipients(ctx, childID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve crisis recipients")
	}
	for _, guardianID := range recipients {
		if err := s.Notify(ctx, guardianID, id.RoleGuardian, id.NotificationCrisisAlert, title, message); err != nil {
			return 0, err
		}
	}
	return len(recipients), nil
}

// ListResult is the inbox listing plus its counters.
type ListResult struct {
	Notifications []*Notification `json:"notifications"`
	Total         int             `json:"total"`
	Unread        int             `json:"unread"`
}

// List returns the caller's notifications, newest first.
func (s *Service) List(ctx context.Context, userID id.UserID, onlyUnread bool) (*ListResult, error) {
	items, err := s.store.ListByRecipient(ctx, userID, onlyUnread)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count notifications")
	}
	return &ListResult{Notifications: items, Total: len(items), Unread: unread}, nil
}

// MarkRead flips read=true when the caller owns the notification. Missing
// and foreign records produce the identical not_found failure.
func (s *Service) MarkRead(ctx context.Context, notificationID id.NotificationID, callerID id.UserID) error {
	err := s.store.MarkRead(ctx, notificationID, callerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}
