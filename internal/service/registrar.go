package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/internal/auth"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// RegisterInput is a signup request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// IdentityRegistrar creates a user in the main store and its credential in
// the auth store. The stores commit separately; a failed credential write is
// undone by deleting the user again.
type IdentityRegistrar struct {
	main        Transactor
	auth        Transactor
	users       repository.UserRepository
	profiles    repository.ProfileRepository
	credentials repository.CredentialRepository
	hasher      auth.PasswordHasher
	orphanGrace time.Duration
	now         func() time.Time
}

// NewIdentityRegistrar returns an IdentityRegistrar. A user without a
// credential is only reclaimed once it is older than orphanGrace.
func NewIdentityRegistrar(
	mainTx, authTx Transactor,
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	credentials repository.CredentialRepository,
	hasher auth.PasswordHasher,
	orphanGrace time.Duration,
) *IdentityRegistrar {
	return &IdentityRegistrar{
		main:        mainTx,
		auth:        authTx,
		users:       users,
		profiles:    profiles,
		credentials: credentials,
		hasher:      hasher,
		orphanGrace: orphanGrace,
		now:         time.Now,
	}
}

func validateRegistration(in RegisterInput) error {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// Register creates the identity and returns the stored user.
func (r *IdentityRegistrar) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateRegistration(in); err != nil {
		observability.RegistrationTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "IdentityRegistrar.Register",
		attribute.String("user.username", in.Username))
	defer func() {
		observability.EndSpan(span, err)
		registrationOutcome(err)
	}()

	if err := r.reclaimOrphan(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	user = &models.User{Username: in.Username, Email: in.Email}
	err = r.main.Transaction(ctx, func(ctx context.Context) error {
		existing, err := r.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return models.NewConflictError("Username or email already taken")
		}
		if err := r.users.Create(ctx, user); err != nil {
			return err
		}
		return r.profiles.Create(ctx, &models.Profile{UserID: user.ID})
	})
	if err != nil {
		return nil, err
	}

	// The user row is committed. From here on a dropped request must not
	// stop the credential write or its compensation halfway.
	detached := context.WithoutCancel(ctx)
	if credErr := r.storeCredential(detached, user.ID, in.Password); credErr != nil {
		return nil, r.compensate(detached, user.ID, credErr)
	}

	observability.Logger.InfoContext(ctx, "user registered", slog.Any("user_id", user.ID))
	return user, nil
}

func (r *IdentityRegistrar) storeCredential(ctx context.Context, userID uint, password string) error {
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return err
	}
	return r.auth.Transaction(ctx, func(ctx context.Context) error {
		return r.credentials.Create(ctx, &models.Credential{UserID: userID, PasswordHash: hash})
	})
}

// compensate deletes the user whose credential could not be written. When
// the delete fails too, the user is left orphaned and the error says so.
func (r *IdentityRegistrar) compensate(ctx context.Context, userID uint, cause error) error {
	observability.Logger.WarnContext(ctx, "credential write failed, removing user",
		slog.Any("user_id", userID),
		slog.String("error", cause.Error()),
	)
	if err := removeIdentity(ctx, r.main, r.users, userID); err != nil {
		observability.CompensationTotal.WithLabelValues(observability.OutcomeFailed).Inc()
		observability.OrphanedIdentities.WithLabelValues("stranded").Inc()
		observability.Logger.ErrorContext(ctx, "compensation failed, user orphaned",
			slog.Any("user_id", userID),
			slog.String("cause", cause.Error()),
			slog.String("error", err.Error()),
		)
		return models.NewOrphanedIdentityError(userID, errors.Join(cause, err))
	}
	observability.CompensationTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	return models.NewInternalError(cause)
}

// reclaimOrphan removes a credential-less user left behind by an earlier
// failed attempt with exactly the same username and email.
func (r *IdentityRegistrar) reclaimOrphan(ctx context.Context, username, email string) error {
	matches, err := r.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return err
	}
	for _, u := range matches {
		if u.Username != username || u.Email != email {
			continue
		}
		if r.now().Sub(u.CreatedAt) < r.orphanGrace {
			return nil
		}
		cred, err := r.credentials.GetByUserID(ctx, u.ID)
		if err != nil {
			return err
		}
		if cred != nil {
			return nil
		}
		if err := removeIdentity(ctx, r.main, r.users, u.ID); err != nil {
			return err
		}
		observability.OrphanedIdentities.WithLabelValues("reclaimed").Inc()
		observability.Logger.WarnContext(ctx, "reclaimed orphaned identity",
			slog.Any("user_id", u.ID),
			slog.String("username", username),
		)
	}
	return nil
}

// removeIdentity deletes a user; the profile and any edges cascade.
func removeIdentity(ctx context.Context, tx Transactor, users repository.UserRepository, userID uint) error {
	return tx.Transaction(ctx, func(ctx context.Context) error {
		return users.Delete(ctx, userID)
	})
}

func registrationOutcome(err error) {
	switch {
	case err == nil:
		observability.RegistrationTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	case models.HasCode(err, models.CodeConflict), models.HasCode(err, models.CodeValidation):
		observability.RegistrationTotal.WithLabelValues(observability.OutcomeRejected).Inc()
	default:
		observability.RegistrationTotal.WithLabelValues(observability.OutcomeFailed).Inc()
	}
}
