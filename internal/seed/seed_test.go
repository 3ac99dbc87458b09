package seed

import (
	"context"
	"testing"

	"agora/internal/auth"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/service"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeeder_RunPopulatesBothStores(t *testing.T) {
	stores := testutil.NewStores(t)
	seeder := NewSeeder(stores, auth.NewBcryptHasher(bcrypt.MinCost), Options{
		NumUsers:        6,
		NumPosts:        10,
		MaxLikesPerPost: 4,
		FollowsPerUser:  3,
		CommentsPerPost: 1,
		Seed:            42,
	})

	ctx := context.Background()
	result, err := seeder.Run(ctx)
	require.NoError(t, err)

	assert.Len(t, result.Users, 6)
	assert.Len(t, result.Posts, 10)
	assert.EqualValues(t, 6, testutil.CountRows(t, stores.Main, &models.User{}))
	assert.EqualValues(t, 6, testutil.CountRows(t, stores.Auth, &models.Credential{}))
	assert.EqualValues(t, 10, testutil.CountRows(t, stores.Main, &models.Post{}))
	assert.EqualValues(t, result.Likes, testutil.CountRows(t, stores.Main, &models.Like{}))
	assert.EqualValues(t, result.Follows, testutil.CountRows(t, stores.Main, &models.Follow{}))
	assert.EqualValues(t, 10, testutil.CountRows(t, stores.Main, &models.Comment{}))

	// Seeded users can log in.
	verifier := service.NewAuthenticationVerifier(
		repository.NewUserRepository(stores.Main),
		repository.NewCredentialRepository(stores.Auth),
		auth.NewBcryptHasher(bcrypt.MinCost),
	)
	_, err = verifier.Login(ctx, service.LoginInput{Identifier: result.Users[0].Username, Password: DefaultPassword})
	require.NoError(t, err)

	require.NoError(t, seeder.ClearAll(ctx))
	assert.Zero(t, testutil.CountRows(t, stores.Main, &models.User{}))
	assert.Zero(t, testutil.CountRows(t, stores.Main, &models.Post{}))
	assert.Zero(t, testutil.CountRows(t, stores.Auth, &models.Credential{}))
}

func TestSeeder_UsernamesAreValid(t *testing.T) {
	seeder := NewSeeder(testutil.NewStores(t), auth.NewBcryptHasher(bcrypt.MinCost), Options{Seed: 7})
	for i := 0; i < 50; i++ {
		name := seeder.username()
		assert.Regexp(t, `^[a-z0-9][a-z0-9_-]{1,48}[a-z0-9]$`, name)
	}
}

func TestSeeder_PickIsDistinctAndBounded(t *testing.T) {
	seeder := NewSeeder(testutil.NewStores(t), auth.NewBcryptHasher(bcrypt.MinCost), Options{Seed: 1})
	users := []*models.User{{ID: 1}, {ID: 2}, {ID: 3}}

	assert.Len(t, seeder.pick(users, 10), 3)
	picked := seeder.pick(users, 2)
	require.Len(t, picked, 2)
	assert.NotEqual(t, picked[0].ID, picked[1].ID)
	assert.Empty(t, seeder.pick(users, 0))
}
