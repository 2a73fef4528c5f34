// Package projection assembles the guardian-facing view of a child's
// wellness data. The view is built strictly from the link's permission set,
// and a successful read always leaves an audit entry and a notification to
// the child behind it.
package projection

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"kindred/internal/audit"
	"kindred/internal/directory"
	"kindred/internal/links"
	"kindred/internal/links/store"
	"kindred/internal/platform/metrics"
	id "kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
	"kindred/pkg/platform/sentinel"
	"kindred/pkg/requestcontext"
)

// Notifier dispatches a typed notification to one recipient.
type Notifier interface {
	Notify(ctx context.Context, recipientID id.UserID, role id.Role, typ id.NotificationType, title, message string) error
}

// AuditPublisher records data-access events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	links    store.Store
	wellness directory.WellnessSource
	notifier Notifier
	audit    AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(
	linkStore store.Store,
	wellness directory.WellnessSource,
	notifier Notifier,
	auditPublisher AuditPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		links:    linkStore,
		wellness: wellness,
		notifier: notifier,
		audit:    auditPublisher,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kindred/projection"),
	}
}

// ChildData builds the filtered view for the guardian on the given link.
// The caller must be the link's guardian and the link must be ACTIVE. The
// audit append is part of the read: if it fails, the guardian gets an error
// and no data, so a view can never exist without its log entry.
func (s *Service) ChildData(ctx context.Context, linkID id.LinkID, guardianID id.UserID) (*ChildView, error) {
	ctx, span := s.tracer.Start(ctx, "projection.ChildData")
	defer span.End()

	link, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "link not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load link")
	}
	if link.GuardianID != guardianID {
		return nil, dErrors.New(dErrors.CodeNotFound, "link not found")
	}
	if link.Status != links.StatusActive {
		return nil, dErrors.New(dErrors.CodeInvalidState, "link is not active")
	}

	view, categories, err := s.build(ctx, link)
	if err != nil {
		return nil, err
	}

	event := audit.Event{
		ID:         id.NewAccessEntryID(),
		LinkID:     link.ID,
		GuardianID: link.GuardianID,
		ChildID:    link.ChildID,
		Timestamp:  requestcontext.Now(ctx),
		Action:     audit.ActionDataAccessed,
		ActorRole:  id.RoleGuardian,
		Categories: categories,
		ClientIP:   requestcontext.ClientIP(ctx),
		Device:     requestcontext.Device(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record data access")
	}

	s.metrics.GuardianReads.Inc()
	if err := s.notifier.Notify(ctx, link.ChildID, id.RoleChild, id.NotificationParentViewedData,
		"Your guardian viewed your summary",
		"Your guardian viewed the wellness summary you share with them.",
	); err != nil {
		s.logger.ErrorContext(ctx, "failed to dispatch view notification",
			"error", err, "link_id", link.ID.String())
	}

	return view, nil
}

// build assembles sections one permission at a time and reports which data
// categories actually went out. Categories with no view permission never
// reach the source reads at all, and a permitted section with no data yet
// stays off the view, so the payload shape never reveals which of the two
// kept a key out.
func (s *Service) build(ctx context.Context, link *links.GuardianLink) (*ChildView, []id.DataCategory, error) {
	view := &ChildView{
		ChildID:     link.ChildID,
		LinkID:      link.ID,
		GeneratedAt: requestcontext.Now(ctx),
	}
	var categories []id.DataCategory

	if link.Permissions.Has(id.PermissionViewMoodTrends) {
		moods, err := s.wellness.MoodTrends(ctx, link.ChildID)
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load mood trends")
		}
		if moods != nil {
			view.MoodTrends = moods
			categories = append(categories, id.CategoryMoodTrends)
		}
	}
	if link.Permissions.Has(id.PermissionViewAppUsage) {
		usage, err := s.wellness.AppUsage(ctx, link.ChildID)
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load app usage")
		}
		if usage != nil {
			view.AppUsage = usage
			categories = append(categories, id.CategoryAppUsage)
		}
	}
	if link.Permissions.Has(id.PermissionViewAchievements) {
		achievements, err := s.wellness.Achievements(ctx, link.ChildID)
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load achievements")
		}
		if len(achievements) > 0 {
			view.Achievements = achievements
			categories = append(categories, id.CategoryAchievements)
		}
	}

	// Protected categories have no permission tag and no section here, so
	// nothing can opt them in. This guard exists to hold that line if a
	// future section is wired up wrong.
	for _, c := range categories {
		if c.IsProtected() {
			return nil, nil, dErrors.New(dErrors.CodeInternal, "protected category in projection")
		}
	}

	return view, categories, nil
}
