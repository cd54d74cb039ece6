package pg

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"

	migrations "github.com/dropDatabas3/hellojohn-identity/migrations/postgres"
)

// Migration una migración SQL embebida.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Formato de archivo: {version}_{name}.sql (ej: 0001_auth_recipes.sql)
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// ParseMigrations lee las migraciones embebidas ordenadas por versión.
func ParseMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])
		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: m[2], SQL: string(content)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate implementa store.MigratableConnection: aplica las migraciones
// pendientes, cada una en su propia transacción, y retorna las versiones aplicadas.
func (c *pgConnection) Migrate(ctx context.Context) ([]int, error) {
	const createTable = `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`
	if _, err := c.pool.Exec(ctx, createTable); err != nil {
		return nil, fmt.Errorf("pg: creating migrations table: %w", err)
	}

	applied, err := c.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	all, err := ParseMigrations(migrations.CoreFS, migrations.CoreDir)
	if err != nil {
		return nil, fmt.Errorf("pg: parsing migrations: %w", err)
	}

	var done []int
	for _, mig := range all {
		if applied[mig.Version] {
			continue
		}
		err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return done, fmt.Errorf("pg: applying migration %d_%s: %w", mig.Version, mig.Name, err)
		}
		done = append(done, mig.Version)
	}
	return done, nil
}

func (c *pgConnection) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := c.pool.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("pg: getting applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("pg: getting applied migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}
