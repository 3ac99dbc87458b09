package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"agora/internal/auth"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
)

// LoginInput is a login request. Identifier is a username or an email.
type LoginInput struct {
	Identifier string
	Password   string
}

// AuthenticationVerifier checks a password against the credential in the
// auth store for a user found in the main store.
type AuthenticationVerifier struct {
	users       repository.UserRepository
	credentials repository.CredentialRepository
	hasher      auth.PasswordHasher
}

func NewAuthenticationVerifier(users repository.UserRepository, credentials repository.CredentialRepository, hasher auth.PasswordHasher) *AuthenticationVerifier {
	return &AuthenticationVerifier{users: users, credentials: credentials, hasher: hasher}
}

func invalidCredentials() error {
	return models.NewUnauthorizedError("Invalid credentials")
}

// Login returns the authenticated user. Unknown users, users without a
// credential and wrong passwords fail with the same error.
func (a *AuthenticationVerifier) Login(ctx context.Context, in LoginInput) (user *models.User, err error) {
	identifier := strings.TrimSpace(in.Identifier)
	// Emails are stored lowercased; usernames cannot contain '@'.
	if strings.Contains(identifier, "@") {
		identifier = strings.ToLower(identifier)
	}
	if identifier == "" || in.Password == "" {
		return nil, models.NewValidationError("Identifier and password are required")
	}

	ctx, span := observability.StartSpan(ctx, "AuthenticationVerifier.Login")
	defer func() {
		observability.EndSpan(span, err)
		switch {
		case err == nil:
			observability.LoginTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
		case models.HasCode(err, models.CodeUnauthorized):
			observability.LoginTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		default:
			observability.LoginTotal.WithLabelValues(observability.OutcomeFailed).Inc()
		}
	}()

	user, err = a.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, invalidCredentials()
	}

	cred, err := a.credentials.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		observability.OrphanedIdentities.WithLabelValues("login").Inc()
		observability.Logger.WarnContext(ctx, "login for user without credential", slog.Any("user_id", user.ID))
		return nil, invalidCredentials()
	}

	if err := a.hasher.Verify(cred.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, invalidCredentials()
		}
		return nil, models.NewInternalError(err)
	}
	return user, nil
}
