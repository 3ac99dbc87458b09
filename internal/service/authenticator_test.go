package service

import (
	"context"
	"errors"
	"testing"

	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	v := NewAuthenticationVerifier(f.users, f.credentials, f.hasher)

	for _, identifier := range []string{"alice", "alice@example.com"} {
		user, err := v.Login(context.Background(), LoginInput{Identifier: identifier, Password: testPassword})
		require.NoError(t, err, identifier)
		assert.Equal(t, alice.ID, user.ID)
	}
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	bob, err := f.registrar().Register(context.Background(), RegisterInput{
		Username: "Bob", Email: "Bob@Example.com", Password: testPassword,
	})
	require.NoError(t, err)
	v := NewAuthenticationVerifier(f.users, f.credentials, f.hasher)

	for _, identifier := range []string{"Bob@Example.com", "bob@example.com", " BOB@EXAMPLE.COM "} {
		user, err := v.Login(context.Background(), LoginInput{Identifier: identifier, Password: testPassword})
		require.NoError(t, err, identifier)
		assert.Equal(t, bob.ID, user.ID)
	}

	_, err = v.Login(context.Background(), LoginInput{Identifier: "bob", Password: testPassword})
	assertCode(t, err, models.CodeUnauthorized)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	// A user row without a credential, as left by a failed compensation.
	testutil.CreateUser(t, f.stores.Main, "ghost", false)
	v := NewAuthenticationVerifier(f.users, f.credentials, f.hasher)

	cases := map[string]LoginInput{
		"unknown user":       {Identifier: "nobody", Password: testPassword},
		"missing credential": {Identifier: "ghost", Password: testPassword},
		"wrong password":     {Identifier: "alice", Password: "Wr0ng$Password"},
	}

	var messages []string
	for name, in := range cases {
		_, err := v.Login(context.Background(), in)
		assertCode(t, err, models.CodeUnauthorized)
		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr), name)
		messages = append(messages, appErr.Message)
	}
	for _, m := range messages {
		assert.Equal(t, "Invalid credentials", m)
	}
}

func TestLogin_EmptyFields(t *testing.T) {
	v := NewAuthenticationVerifier(&userRepoStub{}, &credentialRepoStub{}, nil)

	_, err := v.Login(context.Background(), LoginInput{Identifier: " ", Password: testPassword})
	assertCode(t, err, models.CodeValidation)
	_, err = v.Login(context.Background(), LoginInput{Identifier: "alice"})
	assertCode(t, err, models.CodeValidation)
}

func TestLogin_StoreFailureIsInternal(t *testing.T) {
	users := &userRepoStub{
		findByIdentifierFn: func(context.Context, string) (*models.User, error) {
			return &models.User{ID: 1, Username: "alice"}, nil
		},
	}
	creds := &credentialRepoStub{
		getByUserIDFn: func(context.Context, uint) (*models.Credential, error) {
			return nil, models.NewInternalError(errStoreDown)
		},
	}
	v := NewAuthenticationVerifier(users, creds, nil)

	_, err := v.Login(context.Background(), LoginInput{Identifier: "alice", Password: testPassword})
	assertCode(t, err, models.CodeInternal)
}

func TestLogin_MalformedHashIsInternal(t *testing.T) {
	users := &userRepoStub{
		findByIdentifierFn: func(context.Context, string) (*models.User, error) {
			return &models.User{ID: 1}, nil
		},
	}
	creds := &credentialRepoStub{
		getByUserIDFn: func(context.Context, uint) (*models.Credential, error) {
			return &models.Credential{UserID: 1, PasswordHash: "garbage"}, nil
		},
	}
	hasher := &hasherStub{verifyFn: func(string, string) error { return errors.New("hash too short") }}
	v := NewAuthenticationVerifier(users, creds, hasher)

	_, err := v.Login(context.Background(), LoginInput{Identifier: "alice", Password: testPassword})
	assertCode(t, err, models.CodeInternal)
}
