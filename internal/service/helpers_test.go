package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"agora/internal/audit"
	"agora/internal/auth"
	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Sup3r$ecretPass"

var errStoreDown = errors.New("store unavailable")

// passthroughTx runs fn without a transaction.
type passthroughTx struct{}

func (passthroughTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// userRepoStub overrides selected methods of an optional backing repository.
// Calling a method with neither an override nor a backing repository panics,
// which is how tests assert that no I/O happened.
type userRepoStub struct {
	repository.UserRepository
	findByIdentifierFn      func(context.Context, string) (*models.User, error)
	findByUsernameOrEmailFn func(context.Context, string, string) ([]models.User, error)
	createFn                func(context.Context, *models.User) error
	deleteFn                func(context.Context, uint) error
	lockByIDFn              func(context.Context, uint, repository.LockMode) (*models.User, error)
}

func (s *userRepoStub) LockByID(ctx context.Context, id uint, mode repository.LockMode) (*models.User, error) {
	if s.lockByIDFn != nil {
		return s.lockByIDFn(ctx, id, mode)
	}
	return s.UserRepository.LockByID(ctx, id, mode)
}

func (s *userRepoStub) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if s.findByIdentifierFn != nil {
		return s.findByIdentifierFn(ctx, identifier)
	}
	return s.UserRepository.FindByIdentifier(ctx, identifier)
}

func (s *userRepoStub) FindByUsernameOrEmail(ctx context.Context, username, email string) ([]models.User, error) {
	if s.findByUsernameOrEmailFn != nil {
		return s.findByUsernameOrEmailFn(ctx, username, email)
	}
	return s.UserRepository.FindByUsernameOrEmail(ctx, username, email)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, user)
	}
	return s.UserRepository.Create(ctx, user)
}

func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return s.UserRepository.Delete(ctx, id)
}

// credentialRepoStub is the same pattern for repository.CredentialRepository.
type credentialRepoStub struct {
	repository.CredentialRepository
	createFn      func(context.Context, *models.Credential) error
	getByUserIDFn func(context.Context, uint) (*models.Credential, error)
}

func (s *credentialRepoStub) Create(ctx context.Context, cred *models.Credential) error {
	if s.createFn != nil {
		return s.createFn(ctx, cred)
	}
	return s.CredentialRepository.Create(ctx, cred)
}

func (s *credentialRepoStub) GetByUserID(ctx context.Context, userID uint) (*models.Credential, error) {
	if s.getByUserIDFn != nil {
		return s.getByUserIDFn(ctx, userID)
	}
	return s.CredentialRepository.GetByUserID(ctx, userID)
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	existsFn func(context.Context, uint, uint) (bool, error)
	insertFn func(context.Context, uint, uint) (bool, error)
	deleteFn func(context.Context, uint, uint) (bool, error)
}

func (s *likeRepoStub) Exists(ctx context.Context, userID, postID uint) (bool, error) {
	return s.existsFn(ctx, userID, postID)
}
func (s *likeRepoStub) Insert(ctx context.Context, userID, postID uint) (bool, error) {
	return s.insertFn(ctx, userID, postID)
}
func (s *likeRepoStub) Delete(ctx context.Context, userID, postID uint) (bool, error) {
	return s.deleteFn(ctx, userID, postID)
}
func (s *likeRepoStub) ListByPost(context.Context, uint, int, int) ([]models.Liker, error) {
	return nil, nil
}

// postExistsStub answers Exists and panics on anything else.
type postExistsStub struct {
	repository.PostRepository
	exists bool
}

func (s *postExistsStub) Exists(context.Context, uint) (bool, error) { return s.exists, nil }

// hasherStub is a stub for auth.PasswordHasher.
type hasherStub struct {
	hashFn   func(string) (string, error)
	verifyFn func(string, string) error
}

func (h *hasherStub) Hash(password string) (string, error) { return h.hashFn(password) }
func (h *hasherStub) Verify(hash, password string) error  { return h.verifyFn(hash, password) }

// memorySink collects audit records.
type memorySink struct {
	mu      sync.Mutex
	records []audit.Record
	err     error
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Emit(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) snapshot() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Record(nil), s.records...)
}

// fixture wires repositories over fresh SQLite main and auth stores.
type fixture struct {
	stores      *database.Stores
	users       repository.UserRepository
	profiles    repository.ProfileRepository
	credentials repository.CredentialRepository
	posts       repository.PostRepository
	comments    repository.CommentRepository
	likes       repository.LikeRepository
	follows     repository.FollowRepository
	hasher      auth.PasswordHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := testutil.NewStores(t)
	return &fixture{
		stores:      stores,
		users:       repository.NewUserRepository(stores.Main),
		profiles:    repository.NewProfileRepository(stores.Main),
		credentials: repository.NewCredentialRepository(stores.Auth),
		posts:       repository.NewPostRepository(stores.Main),
		comments:    repository.NewCommentRepository(stores.Main),
		likes:       repository.NewLikeRepository(stores.Main),
		follows:     repository.NewFollowRepository(stores.Main),
		hasher:      auth.NewBcryptHasher(bcrypt.MinCost),
	}
}

func (f *fixture) registrar() *IdentityRegistrar {
	return NewIdentityRegistrar(f.stores.Main, f.stores.Auth, f.users, f.profiles, f.credentials, f.hasher, 0)
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := f.registrar().Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	return user
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}
