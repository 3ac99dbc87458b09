//go:build integration

package seed

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"agora/internal/auth"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// parseDatabaseURLToConfig points both stores at the same PostgreSQL
// database; the table sets do not overlap.
func parseDatabaseURLToConfig(dsn string) (*config.Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	password := ""
	if u.User != nil {
		password, _ = u.User.Password()
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	dbname := strings.TrimPrefix(u.Path, "/")
	return &config.Config{
		DBDriver:       "postgres",
		DBHost:         u.Hostname(),
		DBPort:         port,
		DBUser:         u.User.Username(),
		DBPassword:     password,
		DBName:         dbname,
		DBSSLMode:      "disable",
		AuthDBDriver:   "postgres",
		AuthDBHost:     u.Hostname(),
		AuthDBPort:     port,
		AuthDBUser:     u.User.Username(),
		AuthDBPassword: password,
		AuthDBName:     dbname,
		AuthDBSSLMode:  "disable",
		Env:            "test",
		DBSchemaMode:   "hybrid",
	}, nil
}

func TestIntegration_SeedPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration seed test")
	}
	cfg, err := parseDatabaseURLToConfig(dsn)
	require.NoError(t, err)

	stores, err := database.OpenStores(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	ctx := context.Background()
	require.NoError(t, database.ApplySchemas(ctx, stores, cfg))

	seeder := NewSeeder(stores, auth.NewBcryptHasher(bcrypt.MinCost), Options{NumUsers: 5, NumPosts: 8, Seed: 99})
	require.NoError(t, seeder.ClearAll(ctx))
	result, err := seeder.Run(ctx)
	require.NoError(t, err)

	var posts int64
	require.NoError(t, stores.Main.Conn(ctx).Model(&models.Post{}).Count(&posts).Error)
	assert.EqualValues(t, len(result.Posts), posts)
}
