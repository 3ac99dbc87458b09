package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"agora/internal/audit"
	"agora/internal/featureflags"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
)

// AdminToggleResult is the target's admin flag after a toggle.
type AdminToggleResult struct {
	UserID  uint `json:"user_id"`
	IsAdmin bool `json:"is_admin"`
}

// AdminPrivilegeManager grants and revokes admin rights. Every change is
// followed by a best-effort audit record.
type AdminPrivilegeManager struct {
	tx    Transactor
	users repository.UserRepository
	sink  audit.Sink
	flags *featureflags.Manager
	now   func() time.Time
}

func NewAdminPrivilegeManager(tx Transactor, users repository.UserRepository, sink audit.Sink, flags *featureflags.Manager) *AdminPrivilegeManager {
	return &AdminPrivilegeManager{
		tx:    tx,
		users: users,
		sink:  sink,
		flags: flags,
		now:   time.Now,
	}
}

// ToggleAdmin negates the target's admin flag on behalf of an admin requester.
func (m *AdminPrivilegeManager) ToggleAdmin(ctx context.Context, requesterID, targetUserID uint) (result AdminToggleResult, err error) {
	defer func() {
		switch {
		case err == nil:
			observability.AdminToggleTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
		case models.HasCode(err, models.CodeForbidden), models.HasCode(err, models.CodeNotFound):
			observability.AdminToggleTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		default:
			observability.AdminToggleTotal.WithLabelValues(observability.OutcomeFailed).Inc()
		}
	}()

	err = m.tx.Transaction(ctx, func(ctx context.Context) error {
		locked, err := m.lockUsers(ctx, requesterID, targetUserID)
		if err != nil {
			return err
		}
		requester := locked[requesterID]
		if requester == nil || !requester.IsAdmin {
			return forbiddenAdmin()
		}
		if requesterID == targetUserID && !m.flags.Enabled(featureflags.AdminSelfToggle, requesterID) {
			observability.AuthorizationDenials.WithLabelValues("admin_self_toggle").Inc()
			return models.NewForbiddenError("Admins cannot change their own admin status")
		}

		target := locked[targetUserID]
		if target == nil {
			return models.NewNotFoundError("User", targetUserID)
		}
		result = AdminToggleResult{UserID: target.ID, IsAdmin: !target.IsAdmin}
		return m.users.SetAdmin(ctx, target.ID, result.IsAdmin)
	})
	if err != nil {
		return AdminToggleResult{}, err
	}

	m.record(ctx, requesterID, result)
	return result, nil
}

// lockUsers locks the rows of ids FOR UPDATE in ascending ID order, so two
// admins toggling each other wait instead of deadlocking. Missing users are
// absent from the result.
func (m *AdminPrivilegeManager) lockUsers(ctx context.Context, ids ...uint) (map[uint]*models.User, error) {
	slices.Sort(ids)
	ids = slices.Compact(ids)
	locked := make(map[uint]*models.User, len(ids))
	for _, id := range ids {
		user, err := m.users.LockByID(ctx, id, repository.LockForUpdate)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				continue
			}
			return nil, err
		}
		locked[id] = user
	}
	return locked, nil
}

// Bootstrap makes userID the first admin. It refuses once any admin exists.
func (m *AdminPrivilegeManager) Bootstrap(ctx context.Context, userID uint) (*models.User, error) {
	var user *models.User
	err := m.tx.Transaction(ctx, func(ctx context.Context) error {
		n, err := m.users.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return models.NewConflictError("An admin already exists; use toggle instead")
		}
		user, err = m.users.LockByID(ctx, userID, repository.LockForUpdate)
		if err != nil {
			return err
		}
		if err := m.users.SetAdmin(ctx, userID, true); err != nil {
			return err
		}
		user.IsAdmin = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.record(ctx, 0, AdminToggleResult{UserID: userID, IsAdmin: true})
	return user, nil
}

func (m *AdminPrivilegeManager) ListAdmins(ctx context.Context) ([]models.User, error) {
	return m.users.ListAdmins(ctx)
}

func (m *AdminPrivilegeManager) record(ctx context.Context, requesterID uint, result AdminToggleResult) {
	observability.Logger.InfoContext(ctx, "admin status changed",
		slog.Any("requester_id", requesterID),
		slog.Any("target_user_id", result.UserID),
		slog.Bool("is_admin", result.IsAdmin),
	)
	audit.BestEffort(ctx, m.sink, audit.Record{
		Timestamp:    m.now().UTC(),
		Action:       audit.ActionToggleAdmin,
		RequesterID:  requesterID,
		TargetUserID: result.UserID,
		NewValue:     result.IsAdmin,
	})
}

func forbiddenAdmin() error {
	observability.AuthorizationDenials.WithLabelValues("toggle_admin").Inc()
	return models.NewForbiddenError("Admin privileges required")
}
