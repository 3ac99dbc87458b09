package service

import (
	"context"
	"log/slog"
	"time"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
)

const reconcilePageSize = 500

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Scanned int           `json:"scanned"`
	Orphans []models.User `json:"orphans"`
	Removed int           `json:"removed"`
}

// OrphanReconciler finds users in the main store that have no credential
// in the auth store, typically left by a registration whose compensation failed.
type OrphanReconciler struct {
	main        Transactor
	users       repository.UserRepository
	credentials repository.CredentialRepository
	grace       time.Duration
	now         func() time.Time
}

func NewOrphanReconciler(mainTx Transactor, users repository.UserRepository, credentials repository.CredentialRepository, grace time.Duration) *OrphanReconciler {
	return &OrphanReconciler{
		main:        mainTx,
		users:       users,
		credentials: credentials,
		grace:       grace,
		now:         time.Now,
	}
}

// Run scans users older than the grace window. With fix set, every orphan
// found is deleted the same way a failed registration is compensated.
func (r *OrphanReconciler) Run(ctx context.Context, fix bool) (*ReconcileReport, error) {
	cutoff := r.now().Add(-r.grace)
	report := &ReconcileReport{}

	var afterID uint
	for {
		page, err := r.users.ListCreatedBefore(ctx, cutoff, afterID, reconcilePageSize)
		if err != nil {
			return report, err
		}
		if len(page) == 0 {
			break
		}
		ids := make([]uint, len(page))
		for i, u := range page {
			ids[i] = u.ID
		}
		found, err := r.credentials.ExistingUserIDs(ctx, ids)
		if err != nil {
			return report, err
		}

		for _, u := range page {
			if found[u.ID] {
				continue
			}
			report.Orphans = append(report.Orphans, u)
			if !fix {
				observability.OrphanedIdentities.WithLabelValues("detected").Inc()
				continue
			}
			if err := removeIdentity(ctx, r.main, r.users, u.ID); err != nil {
				return report, err
			}
			report.Removed++
			observability.OrphanedIdentities.WithLabelValues("removed").Inc()
			observability.Logger.InfoContext(ctx, "removed orphaned identity",
				slog.Any("user_id", u.ID),
				slog.String("username", u.Username),
			)
		}

		report.Scanned += len(page)
		afterID = page[len(page)-1].ID
		if len(page) < reconcilePageSize {
			break
		}
	}
	return report, nil
}
