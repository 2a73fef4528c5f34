package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred/internal/audit"
	"kindred/internal/directory"
	"kindred/internal/links"
	"kindred/internal/links/store/memory"
	"kindred/internal/platform/logger"
	"kindred/internal/platform/metrics"
	id "kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
	"kindred/pkg/testutil"
)

type recordedNotification struct {
	RecipientID id.UserID
	Role        id.Role
	Type        id.NotificationType
	Title       string
	Message     string
}

// fakeNotifier captures dispatches so tests can assert on who was told what.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (f *fakeNotifier) Notify(_ context.Context, recipientID id.UserID, role id.Role, typ id.NotificationType, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recordedNotification{recipientID, role, typ, title, message})
	return nil
}

func (f *fakeNotifier) byType(typ id.NotificationType) []recordedNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedNotification
	for _, n := range f.sent {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type fakeAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (f *fakeAudit) Emit(_ context.Context, event audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) byAction(action audit.Action) []audit.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []audit.Event
	for _, e := range f.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	service  *Service
	store    *memory.Store
	users    *directory.InMemory
	notifier *fakeNotifier
	audit    *fakeAudit

	guardianID id.UserID
	childID    id.UserID
	childEmail string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.New(),
		users:      directory.NewInMemory(),
		notifier:   &fakeNotifier{},
		audit:      &fakeAudit{},
		guardianID: newUserID(),
		childID:    newUserID(),
		childEmail: "teen@example.com",
	}
	f.users.AddUser(directory.User{
		ID:          f.guardianID,
		Email:       "parent@example.com",
		AccountType: id.AccountGuardian,
	})
	f.users.AddUser(directory.User{
		ID:          f.childID,
		Email:       f.childEmail,
		AccountType: id.AccountMinorOptionalGuardian,
	})
	f.service = New(
		f.store,
		f.users,
		f.notifier,
		f.audit,
		metrics.New(prometheus.NewRegistry()),
		logger.New(),
		24*time.Hour,
	)
	return f
}

func newUserID() id.UserID { return id.UserID(uuid.New()) }

func (f *fixture) request(t *testing.T, ctx context.Context) (*links.GuardianLink, string) {
	t.Helper()
	link, code, err := f.service.RequestLink(ctx, f.guardianID, f.childEmail)
	require.NoError(t, err)
	return link, code
}

func TestRequestLink(t *testing.T) {
	testutil.Given(t, "a guardian and an eligible teen", func(t *testing.T) {
		f := newFixture(t)
		ctx := testutil.AuthedContext(f.guardianID, id.RoleGuardian)

		testutil.When(t, "the guardian requests a link by email", func(t *testing.T) {
			link, code := f.request(t, ctx)

			testutil.Then(t, "the link is pending with a single-use code", func(t *testing.T) {
				assert.Equal(t, links.StatusPending, link.Status)
				assert.Equal(t, f.guardianID, link.GuardianID)
				assert.Equal(t, f.childID, link.ChildID)
				assert.Len(t, code, 6)
				assert.Empty(t, link.Permissions)
				require.NotNil(t, link.CodeExpiresAt)
			})
			testutil.Then(t, "the child is notified and the request is audited", func(t *testing.T) {
				sent := f.notifier.byType(id.NotificationGuardianRequest)
				require.Len(t, sent, 1)
				assert.Equal(t, f.childID, sent[0].RecipientID)
				assert.NotContains(t, sent[0].Message, code)

				events := f.audit.byAction(audit.ActionLinkRequested)
				require.Len(t, events, 1)
				assert.Equal(t, id.RoleGuardian, events[0].ActorRole)
			})
		})
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		f := newFixture(t)
		ctx := testutil.AuthedContext(f.guardianID, id.RoleGuardian)

		_, _, err := f.service.RequestLink(ctx, f.guardianID, "nobody@example.com")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("adult accounts are not eligible", func(t *testing.T) {
		f := newFixture(t)
		adultID := newUserID()
		f.users.AddUser(directory.User{ID: adultID, Email: "adult@example.com", AccountType: id.AccountAdult})
		ctx := testutil.AuthedContext(f.guardianID, id.RoleGuardian)

		_, _, err := f.service.RequestLink(ctx, f.guardianID, "adult@example.com")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("under-13 accounts require parent-created setup", func(t *testing.T) {
		f := newFixture(t)
		youngID := newUserID()
		f.users.AddUser(directory.User{ID: youngID, Email: "young@example.com", AccountType: id.AccountRequiresParent})
		ctx := testutil.AuthedContext(f.guardianID, id.RoleGuardian)

		_, _, err := f.service.RequestLink(ctx, f.guardianID, "young@example.com")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		f.users.AddUser(directory.User{ID: youngID, Email: "young@example.com", AccountType: id.AccountRequiresParent, ParentCreated: true})
		_, _, err = f.service.RequestLink(ctx, f.guardianID, "young@example.com")
		assert.NoError(t, err)
	})

	t.Run("duplicate pending request conflicts", func(t *testing.T) {
		f := newFixture(t)
		ctx := testutil.AuthedContext(f.guardianID, id.RoleGuardian)
		f.request(t, ctx)

		_, _, err := f.service.RequestLink(ctx, f.guardianID, f.childEmail)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("expired pending request unblocks a fresh one", func(t *testing.T) {
		f := newFixture(t)
		start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		ctx := testutil.ContextAt(testutil.AuthedContext(f.guardianID, id.RoleGuardian), start)
		first, _ := f.request(t, ctx)

		later := testutil.ContextAt(ctx, start.Add(25*time.Hour))
		second, _, err := f.service.RequestLink(later, f.guardianID, f.childEmail)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		stale, err := f.store.FindByID(context.Background(), first.ID)
		require.NoError(t, err)
		assert.Equal(t, links.StatusExpired, stale.Status)
	})

	t.Run("self-linking is rejected", func(t *testing.T) {
		f := newFixture(t)
		ctx := testutil.AuthedContext(f.guardianID, id.RoleGuardian)

		_, _, err := f.service.RequestLink(ctx, f.guardianID, "parent@example.com")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestApprove(t *testing.T) {
	testutil.Given(t, "a pending link with a valid code", func(t *testing.T) {
		f := newFixture(t)
		guardianCtx := testutil.AuthedContext(f.guardianID, id.RoleGuardian)
		link, code := f.request(t, guardianCtx)
		childCtx := testutil.AuthedContext(f.childID, id.RoleChild)

		testutil.When(t, "the child approves with the correct code", func(t *testing.T) {
			approved, err := f.service.Approve(childCtx, link.ID, f.childID, code)
			require.NoError(t, err)

			testutil.Then(t, "the link is active with default permissions", func(t *testing.T) {
				assert.Equal(t, links.StatusActive, approved.Status)
				assert.True(t, approved.Permissions.Has(id.PermissionViewMoodTrends))
				assert.True(t, approved.Permissions.Has(id.PermissionViewAppUsage))
				assert.True(t, approved.Permissions.Has(id.PermissionViewAchievements))
				assert.False(t, approved.Permissions.Has(id.PermissionReceiveCrisisAlert))
				assert.False(t, approved.Permissions.Has(id.PermissionApproveGroups))
				assert.Nil(t, approved.CodeHash)
				require.NotNil(t, approved.ApprovedAt)
			})
			testutil.Then(t, "both parties hear about it", func(t *testing.T) {
				sent := f.notifier.byType(id.NotificationLinkApproved)
				require.Len(t, sent, 2)
			})
			testutil.Then(t, "the code cannot be used again", func(t *testing.T) {
				_, err := f.service.Approve(childCtx, link.ID, f.childID, code)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
			})
		})
	})

	t.Run("wrong code is a mismatch, link stays pending", func(t *testing.T) {
		f := newFixture(t)
		link, _ := f.request(t, testutil.AuthedContext(f.guardianID, id.RoleGuardian))
		childCtx := testutil.AuthedContext(f.childID, id.RoleChild)

		_, err := f.service.Approve(childCtx, link.ID, f.childID, "XXXXXX")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCodeMismatch))

		current, err := f.store.FindByID(context.Background(), link.ID)
		require.NoError(t, err)
		assert.Equal(t, links.StatusPending, current.Status)
	})

	t.Run("expired code expires the link", func(t *testing.T) {
		f := newFixture(t)
		start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		guardianCtx := testutil.ContextAt(testutil.AuthedContext(f.guardianID, id.RoleGuardian), start)
		link, code := f.request(t, guardianCtx)

		lateCtx := testutil.ContextAt(testutil.AuthedContext(f.childID, id.RoleChild), start.Add(24*time.Hour+time.Minute))
		_, err := f.service.Approve(lateCtx, link.ID, f.childID, code)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCodeExpired))

		current, err := f.store.FindByID(context.Background(), link.ID)
		require.NoError(t, err)
		assert.Equal(t, links.StatusExpired, current.Status)

		// Fresh request after expiry succeeds.
		_, _, err = f.service.RequestLink(lateCtx, f.guardianID, f.childEmail)
		assert.NoError(t, err)
	})

	t.Run("only the child on the link can approve", func(t *testing.T) {
		f := newFixture(t)
		link, code := f.request(t, testutil.AuthedContext(f.guardianID, id.RoleGuardian))

		strangerID := newUserID()
		_, err := f.service.Approve(testutil.AuthedContext(strangerID, id.RoleChild), link.ID, strangerID, code)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		// The guardian cannot approve their own request either.
		_, err = f.service.Approve(testutil.AuthedContext(f.guardianID, id.RoleGuardian), link.ID, f.guardianID, code)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("missing link and foreign link are indistinguishable", func(t *testing.T) {
		f := newFixture(t)
		childCtx := testutil.AuthedContext(f.childID, id.RoleChild)

		_, err := f.service.Approve(childCtx, id.NewLinkID(), f.childID, "ABCDEF")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestDeny(t *testing.T) {
	f := newFixture(t)
	link, code := f.request(t, testutil.AuthedContext(f.guardianID, id.RoleGuardian))
	childCtx := testutil.AuthedContext(f.childID, id.RoleChild)

	err := f.service.Deny(childCtx, link.ID, f.childID, "don't know this person")
	require.NoError(t, err)

	current, err := f.store.FindByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, links.StatusDenied, current.Status)
	assert.Nil(t, current.CodeHash)

	sent := f.notifier.byType(id.NotificationLinkDenied)
	require.Len(t, sent, 1)
	assert.Equal(t, f.guardianID, sent[0].RecipientID)

	// Denied is terminal; the old code is gone for good.
	_, err = f.service.Approve(childCtx, link.ID, f.childID, code)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestRevoke(t *testing.T) {
	activate := func(t *testing.T, f *fixture) *links.GuardianLink {
		t.Helper()
		link, code := f.request(t, testutil.AuthedContext(f.guardianID, id.RoleGuardian))
		approved, err := f.service.Approve(testutil.AuthedContext(f.childID, id.RoleChild), link.ID, f.childID, code)
		require.NoError(t, err)
		return approved
	}

	t.Run("child revokes an active link", func(t *testing.T) {
		f := newFixture(t)
		link := activate(t, f)

		err := f.service.Revoke(testutil.AuthedContext(f.childID, id.RoleChild), link.ID, f.childID, id.RoleChild)
		require.NoError(t, err)

		current, err := f.store.FindByID(context.Background(), link.ID)
		require.NoError(t, err)
		assert.Equal(t, links.StatusRevoked, current.Status)
		assert.Empty(t, current.Permissions)
		assert.Equal(t, id.RoleChild, current.RevokedBy)

		sent := f.notifier.byType(id.NotificationLinkRevoked)
		require.Len(t, sent, 1)
		assert.Equal(t, f.guardianID, sent[0].RecipientID)
	})

	t.Run("guardian revokes an active link", func(t *testing.T) {
		f := newFixture(t)
		link := activate(t, f)

		err := f.service.Revoke(testutil.AuthedContext(f.guardianID, id.RoleGuardian), link.ID, f.guardianID, id.RoleGuardian)
		require.NoError(t, err)

		sent := f.notifier.byType(id.NotificationLinkRevoked)
		require.Len(t, sent, 1)
		assert.Equal(t, f.childID, sent[0].RecipientID)
	})

	t.Run("revoking a pending link is invalid", func(t *testing.T) {
		f := newFixture(t)
		link, _ := f.request(t, testutil.AuthedContext(f.guardianID, id.RoleGuardian))

		err := f.service.Revoke(testutil.AuthedContext(f.childID, id.RoleChild), link.ID, f.childID, id.RoleChild)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("a stranger sees not found", func(t *testing.T) {
		f := newFixture(t)
		link := activate(t, f)

		strangerID := newUserID()
		err := f.service.Revoke(testutil.AuthedContext(strangerID, id.RoleChild), link.ID, strangerID, id.RoleChild)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestUpdatePermissions(t *testing.T) {
	activate := func(t *testing.T, f *fixture) *links.GuardianLink {
		t.Helper()
		link, code := f.request(t, testutil.AuthedContext(f.guardianID, id.RoleGuardian))
		approved, err := f.service.Approve(testutil.AuthedContext(f.childID, id.RoleChild), link.ID, f.childID, code)
		require.NoError(t, err)
		return approved
	}

	t.Run("child narrows the set atomically", func(t *testing.T) {
		f := newFixture(t)
		link := activate(t, f)
		childCtx := testutil.AuthedContext(f.childID, id.RoleChild)

		updated, err := f.service.UpdatePermissions(childCtx, link.ID, f.childID, id.PermissionSet{
			id.PermissionViewAchievements: true,
		})
		require.NoError(t, err)
		assert.True(t, updated.Permissions.Has(id.PermissionViewAchievements))
		assert.False(t, updated.Permissions.Has(id.PermissionViewMoodTrends))

		sent := f.notifier.byType(id.NotificationPermissionChange)
		require.Len(t, sent, 1)
		assert.Equal(t, f.guardianID, sent[0].RecipientID)
	})

	t.Run("empty set is rejected", func(t *testing.T) {
		f := newFixture(t)
		link := activate(t, f)

		_, err := f.service.UpdatePermissions(testutil.AuthedContext(f.childID, id.RoleChild), link.ID, f.childID, id.PermissionSet{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("guardian cannot change permissions", func(t *testing.T) {
		f := newFixture(t)
		link := activate(t, f)

		_, err := f.service.UpdatePermissions(testutil.AuthedContext(f.guardianID, id.RoleGuardian), link.ID, f.guardianID, id.DefaultPermissions())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("update after revoke is invalid state", func(t *testing.T) {
		f := newFixture(t)
		link := activate(t, f)
		childCtx := testutil.AuthedContext(f.childID, id.RoleChild)
		require.NoError(t, f.service.Revoke(childCtx, link.ID, f.childID, id.RoleChild))

		_, err := f.service.UpdatePermissions(childCtx, link.ID, f.childID, id.DefaultPermissions())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestConcurrentTransitions(t *testing.T) {
	t.Run("approve and revoke race resolves to one winner", func(t *testing.T) {
		f := newFixture(t)
		link, code := f.request(t, testutil.AuthedContext(f.guardianID, id.RoleGuardian))
		childCtx := testutil.AuthedContext(f.childID, id.RoleChild)

		// Two concurrent approvals of the same pending link: exactly one
		// CAS wins.
		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = f.service.Approve(childCtx, link.ID, f.childID, code)
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range results {
			if err == nil {
				winners++
			} else {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState) ||
					dErrors.HasCode(err, dErrors.CodeCodeMismatch))
			}
		}
		assert.Equal(t, 1, winners)

		current, err := f.store.FindByID(context.Background(), link.ID)
		require.NoError(t, err)
		assert.Equal(t, links.StatusActive, current.Status)
	})
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	guardianCtx := testutil.ContextAt(testutil.AuthedContext(f.guardianID, id.RoleGuardian), start)
	link, _ := f.request(t, guardianCtx)

	t.Run("overdue pending links surface as expired", func(t *testing.T) {
		later := testutil.ContextAt(guardianCtx, start.Add(25*time.Hour))
		out, err := f.service.ListForUser(later, f.guardianID, id.RoleGuardian)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, links.StatusExpired, out[0].Status)

		stored, err := f.store.FindByID(context.Background(), link.ID)
		require.NoError(t, err)
		assert.Equal(t, links.StatusExpired, stored.Status)
	})

	t.Run("the other party sees the same link from their side", func(t *testing.T) {
		out, err := f.service.ListForUser(testutil.AuthedContext(f.childID, id.RoleChild), f.childID, id.RoleChild)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, link.ID, out[0].ID)
	})
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	guardianCtx := testutil.ContextAt(testutil.AuthedContext(f.guardianID, id.RoleGuardian), start)
	f.request(t, guardianCtx)

	otherChildID := newUserID()
	f.users.AddUser(directory.User{ID: otherChildID, Email: "other@example.com", AccountType: id.AccountMinorOptionalGuardian})
	_, _, err := f.service.RequestLink(guardianCtx, f.guardianID, "other@example.com")
	require.NoError(t, err)

	swept, err := f.service.SweepExpired(testutil.ContextAt(context.Background(), start.Add(25*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	events := f.audit.byAction(audit.ActionLinkExpired)
	assert.Len(t, events, 2)

	// Second sweep finds nothing.
	swept, err = f.service.SweepExpired(testutil.ContextAt(context.Background(), start.Add(26*time.Hour)))
	require.NoError(t, err)
	assert.Zero(t, swept)
}
