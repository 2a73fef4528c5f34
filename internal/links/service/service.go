// Package service orchestrates the link lifecycle. Every status change goes
// through a store-level compare-and-swap, and every transition emits its
// audit entry and notifications from here, never from handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"kindred/internal/audit"
	"kindred/internal/directory"
	"kindred/internal/links"
	"kindred/internal/links/code"
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

// AuditPublisher records lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store    store.Store
	users    directory.Resolver
	notifier Notifier
	audit    AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	codeTTL  time.Duration
}

func New(
	store store.Store,
	users directory.Resolver,
	notifier Notifier,
	auditPublisher AuditPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	codeTTL time.Duration,
) *Service {
	return &Service{
		store:    store,
		users:    users,
		notifier: notifier,
		audit:    auditPublisher,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kindred/links"),
		codeTTL:  codeTTL,
	}
}

// RequestLink creates a PENDING link from a guardian to the child behind
// childEmail and returns the link plus the plaintext verification code. The
// code is returned exactly once, for the guardian to relay out-of-band; it
// is never stored, logged, or sent to the child by this service.
func (s *Service) RequestLink(ctx context.Context, guardianID id.UserID, childEmail string) (*links.GuardianLink, string, error) {
	ctx, span := s.tracer.Start(ctx, "links.RequestLink")
	defer span.End()

	if childEmail == "" {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "child email is required")
	}

	child, err := s.users.FindByEmail(ctx, childEmail)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.New(dErrors.CodeNotFound, "no account found for that email")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve child account")
	}
	if child.ID == guardianID {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "cannot request a link to your own account")
	}
	if err := childEligible(child); err != nil {
		return nil, "", err
	}

	now := requestcontext.Now(ctx)

	// One live link per pair. A pending link past its deadline is expired
	// here rather than blocking the re-request until the sweeper runs.
	existing, err := s.store.FindCurrentByPair(ctx, guardianID, child.ID)
	switch {
	case err == nil:
		if existing.Status == links.StatusPending && existing.CodeExpired(now) {
			s.expire(ctx, existing)
		} else {
			return nil, "", dErrors.New(dErrors.CodeConflict, "a pending or active link already exists for this child")
		}
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing links")
	}

	plaintext, hash, err := code.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
	}

	expiresAt := now.Add(s.codeTTL)
	link := &links.GuardianLink{
		ID:            id.NewLinkID(),
		GuardianID:    guardianID,
		ChildID:       child.ID,
		Status:        links.StatusPending,
		CodeHash:      hash,
		CodeExpiresAt: &expiresAt,
		CreatedAt:     now,
	}
	if err := s.store.Create(ctx, link); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "a pending or active link already exists for this child")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create link")
	}

	s.metrics.LinksRequested.Inc()
	s.emitLifecycle(ctx, link, audit.ActionLinkRequested, id.RoleGuardian)
	s.notify(ctx, child.ID, id.RoleChild, id.NotificationGuardianRequest,
		"Guardian link request",
		"A guardian has asked to connect to your account. Approve with the code they share with you, or deny the request.")

	return link, plaintext, nil
}

// childEligible enforces who may occupy the child side of a link.
func childEligible(child *directory.User) error {
	switch child.AccountType {
	case id.AccountMinorOptionalGuardian:
		return nil
	case id.AccountRequiresParent:
		// Under-13 accounts exist only when a parent created them.
		if child.ParentCreated {
			return nil
		}
		return dErrors.New(dErrors.CodeInvalidInput, "account must be set up by a parent before it can be linked")
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "account is not eligible for guardian linking")
	}
}

// Approve verifies the code and transitions PENDING -> ACTIVE with the
// default permission set. Only the child on the link may approve. Exactly
// one of two racing approvals can win the CAS; the loser sees invalid_state.
func (s *Service) Approve(ctx context.Context, linkID id.LinkID, childID id.UserID, candidate string) (*links.GuardianLink, error) {
	ctx, span := s.tracer.Start(ctx, "links.Approve")
	defer span.End()

	link, err := s.loadForParty(ctx, linkID, childID, id.RoleChild)
	if err != nil {
		return nil, err
	}
	if link.Status != links.StatusPending {
		return nil, dErrors.New(dErrors.CodeInvalidState, "link is not pending")
	}

	now := requestcontext.Now(ctx)
	if link.CodeExpired(now) {
		s.expire(ctx, link)
		s.metrics.CodeFailures.WithLabelValues("expired").Inc()
		return nil, dErrors.New(dErrors.CodeCodeExpired, "verification code has expired")
	}

	if !code.Verify(link.CodeHash, candidate) {
		s.metrics.CodeFailures.WithLabelValues("mismatch").Inc()
		return nil, dErrors.New(dErrors.CodeCodeMismatch, "verification code does not match")
	}

	// Single use: the hash is dropped the moment it matches, even if the
	// activation below loses a race.
	if err := s.store.ClearCode(ctx, linkID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear verification code",
			"error", err, "link_id", linkID.String())
	}

	err = s.store.Activate(ctx, linkID, now, id.DefaultPermissions())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "link is not pending")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "link not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate link")
		}
	}

	s.metrics.LinksApproved.Inc()
	s.emitLifecycle(ctx, link, audit.ActionLinkApproved, id.RoleChild)
	s.notify(ctx, link.ChildID, id.RoleChild, id.NotificationLinkApproved,
		"Guardian link active",
		"You approved the guardian link. You control what they can see and can revoke access at any time.")
	s.notify(ctx, link.GuardianID, id.RoleGuardian, id.NotificationLinkApproved,
		"Guardian link active",
		"Your link request was approved. You can now view the shared wellness summary.")

	return s.reload(ctx, linkID)
}

// Deny transitions PENDING -> DENIED. Only the child may deny; the code is
// discarded and can never be retried against this link.
func (s *Service) Deny(ctx context.Context, linkID id.LinkID, childID id.UserID, reason string) error {
	ctx, span := s.tracer.Start(ctx, "links.Deny")
	defer span.End()

	link, err := s.loadForParty(ctx, linkID, childID, id.RoleChild)
	if err != nil {
		return err
	}

	if err := s.store.MarkDenied(ctx, linkID); err != nil {
		return transitionError(err, "link is not pending")
	}

	s.metrics.LinksDenied.Inc()
	s.emitLifecycle(ctx, link, audit.ActionLinkDenied, id.RoleChild)
	message := "The link request was denied."
	if reason != "" {
		message = fmt.Sprintf("The link request was denied: %s", reason)
	}
	s.notify(ctx, link.GuardianID, id.RoleGuardian, id.NotificationLinkDenied,
		"Link request denied", message)
	return nil
}

// Revoke transitions ACTIVE -> REVOKED. Either party may revoke;
// revocation is immediate and unconditional.
func (s *Service) Revoke(ctx context.Context, linkID id.LinkID, callerID id.UserID, callerRole id.Role) error {
	ctx, span := s.tracer.Start(ctx, "links.Revoke")
	defer span.End()

	link, err := s.loadForParty(ctx, linkID, callerID, callerRole)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	if err := s.store.Revoke(ctx, linkID, now, callerRole); err != nil {
		return transitionError(err, "link is not active")
	}

	s.metrics.LinksRevoked.Inc()
	s.emitLifecycle(ctx, link, audit.ActionLinkRevoked, callerRole)

	other := callerRole.Other()
	otherID := link.ChildID
	if other == id.RoleGuardian {
		otherID = link.GuardianID
	}
	s.notify(ctx, otherID, other, id.NotificationLinkRevoked,
		"Guardian link revoked",
		"The guardian link has been revoked. Shared access has ended.")
	return nil
}

// UpdatePermissions atomically replaces the permission set of an ACTIVE
// link. Only the child may adjust permissions; a concurrent revoke wins and
// surfaces here as invalid_state.
func (s *Service) UpdatePermissions(ctx context.Context, linkID id.LinkID, childID id.UserID, permissions id.PermissionSet) (*links.GuardianLink, error) {
	ctx, span := s.tracer.Start(ctx, "links.UpdatePermissions")
	defer span.End()

	if permissions.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "permission set cannot be empty; revoke the link instead")
	}

	link, err := s.loadForParty(ctx, linkID, childID, id.RoleChild)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdatePermissions(ctx, linkID, permissions); err != nil {
		return nil, transitionError(err, "link is not active")
	}

	s.emitLifecycle(ctx, link, audit.ActionPermissionsUpdated, id.RoleChild)
	s.notify(ctx, link.GuardianID, id.RoleGuardian, id.NotificationPermissionChange,
		"Sharing settings changed",
		"The shared wellness summary settings were updated.")

	return s.reload(ctx, linkID)
}

// ListForUser returns the caller's links on the given side, newest first.
// Overdue pending links are expired on the way out.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID, role id.Role) ([]*links.GuardianLink, error) {
	out, err := s.store.ListByParty(ctx, userID, role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list links")
	}
	now := requestcontext.Now(ctx)
	for _, link := range out {
		if link.Status == links.StatusPending && link.CodeExpired(now) {
			s.expire(ctx, link)
			link.Status = links.StatusExpired
			link.CodeHash = nil
			link.CodeExpiresAt = nil
		}
	}
	return out, nil
}

// GetForParty loads a link the caller is a party to. Missing links and
// links belonging to other people are indistinguishable to the caller.
func (s *Service) GetForParty(ctx context.Context, linkID id.LinkID, callerID id.UserID) (*links.GuardianLink, error) {
	link, err := s.load(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.PartyRole(callerID) == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "link not found")
	}
	now := requestcontext.Now(ctx)
	if link.Status == links.StatusPending && link.CodeExpired(now) {
		s.expire(ctx, link)
		link.Status = links.StatusExpired
		link.CodeHash = nil
		link.CodeExpiresAt = nil
	}
	return link, nil
}

// SweepExpired moves every overdue PENDING link to EXPIRED. Safe to run
// concurrently with anything: each expiry is a CAS, and losing a race just
// means someone else already moved the link.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	overdue, err := s.store.ListPendingExpiredBefore(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list overdue links")
	}
	swept := 0
	for _, link := range overdue {
		if err := s.store.MarkExpired(ctx, link.ID); err != nil {
			// Already approved, denied, or expired by a concurrent caller.
			continue
		}
		swept++
		s.metrics.LinksExpired.Inc()
		s.emitLifecycle(ctx, link, audit.ActionLinkExpired, "")
	}
	return swept, nil
}

// load fetches a link, translating store sentinels.
func (s *Service) load(ctx context.Context, linkID id.LinkID) (*links.GuardianLink, error) {
	link, err := s.store.FindByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "link not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load link")
	}
	return link, nil
}

// loadForParty fetches a link and requires the caller to occupy the given
// side. Wrong caller and missing link collapse to the same not_found.
func (s *Service) loadForParty(ctx context.Context, linkID id.LinkID, callerID id.UserID, role id.Role) (*links.GuardianLink, error) {
	link, err := s.load(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.PartyRole(callerID) != role {
		return nil, dErrors.New(dErrors.CodeNotFound, "link not found")
	}
	return link, nil
}

func (s *Service) reload(ctx context.Context, linkID id.LinkID) (*links.GuardianLink, error) {
	link, err := s.load(ctx, linkID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload link")
	}
	return link, nil
}

// expire applies the PENDING -> EXPIRED CAS for a link observed overdue.
// Losing the race is fine; someone else moved it first.
func (s *Service) expire(ctx context.Context, link *links.GuardianLink) {
	if err := s.store.MarkExpired(ctx, link.ID); err != nil {
		return
	}
	s.metrics.LinksExpired.Inc()
	s.emitLifecycle(ctx, link, audit.ActionLinkExpired, "")
}

// emitLifecycle writes the audit entry for a transition. Lifecycle audit is
// best-effort once the transition is durable; failures are logged, never
// silently dropped.
func (s *Service) emitLifecycle(ctx context.Context, link *links.GuardianLink, action audit.Action, actor id.Role) {
	event := audit.Event{
		ID:         id.NewAccessEntryID(),
		LinkID:     link.ID,
		GuardianID: link.GuardianID,
		ChildID:    link.ChildID,
		Timestamp:  requestcontext.Now(ctx),
		Action:     action,
		ActorRole:  actor,
		ClientIP:   requestcontext.ClientIP(ctx),
		Device:     requestcontext.Device(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit lifecycle audit event",
			"error", err,
			"action", string(action),
			"link_id", link.ID.String(),
		)
	}
}

func (s *Service) notify(ctx context.Context, recipientID id.UserID, role id.Role, typ id.NotificationType, title, message string) {
	if err := s.notifier.Notify(ctx, recipientID, role, typ, title, message); err != nil {
		s.logger.ErrorContext(ctx, "failed to dispatch notification",
			"error", err,
			"type", typ.String(),
			"recipient_id", recipientID.String(),
		)
	}
}

func transitionError(err error, invalidStateMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, invalidStateMsg)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "link not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update link")
	}
}
