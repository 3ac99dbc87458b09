package repository

import (
	"context"
	"regexp"
	"testing"

	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*database.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return database.NewStore(database.StoreMain, gormDB), mock
}

func TestUserRepository_GetByID(t *testing.T) {
	store, mock := setupMockDB(t)
	repo := NewUserRepository(store)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		expectedUser *models.User
		expectedCode string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email", "is_admin"}).
					AddRow(1, "testuser", "test@example.com", false)
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Username: "testuser", Email: "test@example.com"},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedCode != "" {
				assert.True(t, models.HasCode(err, tt.expectedCode), "got %v", err)
			} else if assert.NotNil(t, user) {
				assert.Equal(t, tt.expectedUser.Username, user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_LockByIDForUpdate(t *testing.T) {
	store, mock := setupMockDB(t)
	repo := NewUserRepository(store)

	rows := sqlmock.NewRows([]string{"id", "username", "email", "is_admin"}).
		AddRow(3, "target", "target@example.com", true)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2 FOR UPDATE`)).
		WithArgs(3, 1).
		WillReturnRows(rows)

	user, err := repo.LockByID(context.Background(), 3, LockForUpdate)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateMapsUniqueViolationToConflict(t *testing.T) {
	store, mock := setupMockDB(t)
	repo := NewUserRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_username"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "dup", Email: "dup@example.com"})
	assert.True(t, models.HasCode(err, models.CodeConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetAdminMissingUser(t *testing.T) {
	store, mock := setupMockDB(t)
	repo := NewUserRepository(store)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "is_admin"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.SetAdmin(context.Background(), 42, true)
	assert.True(t, models.HasCode(err, models.CodeNotFound), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByIdentifier(t *testing.T) {
	store := testutil.OpenSQLiteStore(t, database.StoreMain)
	repo := NewUserRepository(store)
	ctx := context.Background()
	alice := testutil.CreateUser(t, store, "alice", false)

	byName, err := repo.FindByIdentifier(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, alice.ID, byName.ID)

	byEmail, err := repo.FindByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, alice.ID, byEmail.ID)

	missing, err := repo.FindByIdentifier(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_CreateDuplicateIsConflict(t *testing.T) {
	store := testutil.OpenSQLiteStore(t, database.StoreMain)
	repo := NewUserRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "bob", Email: "bob@example.com"}))
	err := repo.Create(ctx, &models.User{Username: "bob", Email: "other@example.com"})
	assert.True(t, models.HasCode(err, models.CodeConflict), "got %v", err)
}

func TestUserRepository_AdminQueries(t *testing.T) {
	store := testutil.OpenSQLiteStore(t, database.StoreMain)
	repo := NewUserRepository(store)
	ctx := context.Background()

	testutil.CreateUser(t, store, "root", true)
	plain := testutil.CreateUser(t, store, "plain", false)

	n, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.SetAdmin(ctx, plain.ID, true))
	admins, err := repo.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 2)
}

func TestUserRepository_SearchRanksByFollowers(t *testing.T) {
	store := testutil.OpenSQLiteStore(t, database.StoreMain)
	repo := NewUserRepository(store)
	ctx := context.Background()

	quiet := testutil.CreateUser(t, store, "sam_quiet", false)
	popular := testutil.CreateUser(t, store, "sam_popular", false)
	fan1 := testutil.CreateUser(t, store, "fan1", false)
	fan2 := testutil.CreateUser(t, store, "fan2", false)
	testutil.CreateUser(t, store, "samxquiet", false)
	testutil.Follow(t, store, fan1.ID, popular.ID)
	testutil.Follow(t, store, fan2.ID, popular.ID)
	testutil.Follow(t, store, fan1.ID, quiet.ID)

	results, err := repo.Search(ctx, "SAM_", 10)
	require.NoError(t, err)
	require.Len(t, results, 2, "underscore must match literally")
	assert.Equal(t, popular.ID, results[0].ID)
	assert.Equal(t, int64(2), results[0].FollowerCount)
	assert.Equal(t, quiet.ID, results[1].ID)
}
