package database

import (
	"cmp"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

// Migration is one versioned SQL script pair for a single store.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations
var migrationFS embed.FS

// migrations holds each store's sequence, loaded from migrations/<store>/.
var migrations = map[string][]Migration{}

func init() {
	for _, store := range []string{StoreMain, StoreAuth} {
		if err := RegisterMigrations(store, migrationFS); err != nil {
			panic(err)
		}
	}
}

// RegisterMigrations replaces the store's sequence with the
// NNNNNN_name.up.sql / .down.sql pairs found under migrations/<store>/ of fsys.
// Every up script needs its down script and versions must be unique.
func RegisterMigrations(store string, fsys fs.FS) error {
	dir := path.Join("migrations", store)
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read %s migrations: %w", store, err)
	}

	var loaded []Migration
	for _, entry := range entries {
		base, isUp := strings.CutSuffix(entry.Name(), ".up.sql")
		if entry.IsDir() || !isUp {
			continue
		}
		m, err := loadMigration(fsys, dir, base)
		if err != nil {
			return fmt.Errorf("%s migrations: %w", store, err)
		}
		loaded = append(loaded, m)
	}

	slices.SortFunc(loaded, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	for i := 1; i < len(loaded); i++ {
		if loaded[i].Version == loaded[i-1].Version {
			return fmt.Errorf("%s migrations: version %06d used twice", store, loaded[i].Version)
		}
	}
	migrations[store] = loaded
	return nil
}

func loadMigration(fsys fs.FS, dir, base string) (Migration, error) {
	num, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return Migration{}, fmt.Errorf("%s.up.sql: want NNNNNN_name", base)
	}
	version, err := strconv.Atoi(num)
	if err != nil || version <= 0 {
		return Migration{}, fmt.Errorf("%s.up.sql: bad version %q", base, num)
	}

	up, err := fs.ReadFile(fsys, path.Join(dir, base+".up.sql"))
	if err != nil {
		return Migration{}, err
	}
	down, err := fs.ReadFile(fsys, path.Join(dir, base+".down.sql"))
	if err != nil {
		return Migration{}, fmt.Errorf("missing %s.down.sql: %w", base, err)
	}
	return Migration{Version: version, Name: name, UpScript: string(up), DownScript: string(down)}, nil
}

// GetMigrations returns the registered migrations of a store in version order.
func GetMigrations(store string) []Migration {
	return migrations[store]
}

func GetMigrationByVersion(store string, version int) *Migration {
	i := slices.IndexFunc(migrations[store], func(m Migration) bool { return m.Version == version })
	if i < 0 {
		return nil
	}
	m := migrations[store][i]
	return &m
}
