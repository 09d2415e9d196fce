package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DefaultPath is the credential database file used when no path is configured.
const DefaultPath = "predicta.db"

// Open opens (or creates) the on-device SQLite credential database and brings
// its schema up to date. Migrations are embedded from migrations/ and named
//
//	0001_name.up.sql / 0001_name.down.sql
//
// A nil logger is replaced with a no-op logger.
func Open(path string, log *zap.Logger) (*sql.DB, error) {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = zap.NewNop()
	}
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("db.Open: %w", err)
	}
	if err := configure(d); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("db.Open: %w", err)
	}
	applied, err := migrate(d)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("db.Open: %w", err)
	}
	if len(applied) > 0 {
		log.Info("schema migrated", zap.String("path", path), zap.Ints("versions", applied))
	}
	return d, nil
}

func configure(d *sql.DB) error {
	if err := d.Ping(); err != nil {
		return err
	}
	// WAL is unavailable for in-memory databases.
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	for _, p := range []string{`PRAGMA busy_timeout=5000`, `PRAGMA foreign_keys=ON`} {
		if _, err := d.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Version returns the highest applied schema version, or 0 for an empty database.
func Version(d *sql.DB) (int, error) {
	if err := ensureMigrationsTable(d); err != nil {
		return 0, err
	}
	var v sql.NullInt64
	if err := d.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

// RollbackLast reverts the most recently applied migration using its down script.
func RollbackLast(d *sql.DB) error {
	if d == nil {
		return errors.New("nil db")
	}
	version, err := Version(d)
	if err != nil {
		return err
	}
	if version == 0 {
		return nil
	}
	set, err := loadMigrations()
	if err != nil {
		return err
	}
	m, ok := set[version]
	if !ok || m.downFile == "" {
		return fmt.Errorf("no down migration for version %04d", version)
	}
	return m.run(d, m.downFile, `DELETE FROM schema_migrations WHERE version = ?`)
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	version  int
	name     string
	upFile   string
	downFile string
}

// run executes one script and records the bookkeeping statement in the same
// transaction unless the script opts out with a leading "-- NO_TX" line.
func (m migration) run(d *sql.DB, file, bookkeeping string) error {
	raw, err := migrationsFS.ReadFile(file)
	if err != nil {
		return err
	}
	script := string(raw)
	if strings.HasPrefix(strings.TrimSpace(script), "-- NO_TX") {
		if _, err := d.Exec(script); err != nil {
			return fmt.Errorf("migration %04d_%s: %w", m.version, m.name, err)
		}
		_, err := d.Exec(bookkeeping, m.version)
		return err
	}
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %04d_%s: %w", m.version, m.name, err)
	}
	if _, err := tx.Exec(bookkeeping, m.version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.(up|down)\.sql$`)

func loadMigrations() (map[int]migration, error) {
	set := map[int]migration{}
	entries, err := stdfs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		parts := migFileRe.FindStringSubmatch(e.Name())
		if parts == nil {
			continue
		}
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		m := set[v]
		m.version, m.name = v, parts[2]
		if parts[3] == "up" {
			m.upFile = "migrations/" + e.Name()
		} else {
			m.downFile = "migrations/" + e.Name()
		}
		set[v] = m
	}
	return set, nil
}

func ensureMigrationsTable(d *sql.DB) error {
	_, err := d.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
    )`)
	return err
}

// migrate applies every pending up script in version order and returns the
// versions it applied.
func migrate(d *sql.DB) ([]int, error) {
	set, err := loadMigrations()
	if err != nil {
		return nil, err
	}
	if err := ensureMigrationsTable(d); err != nil {
		return nil, err
	}
	done := map[int]bool{}
	rows, err := d.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return nil, err
		}
		done[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	versions := make([]int, 0, len(set))
	for v := range set {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	var applied []int
	for _, v := range versions {
		if done[v] {
			continue
		}
		m := set[v]
		if m.upFile == "" {
			return applied, fmt.Errorf("missing up migration for version %04d", v)
		}
		if err := m.run(d, m.upFile, `INSERT INTO schema_migrations(version) VALUES(?)`); err != nil {
			return applied, err
		}
		applied = append(applied, v)
	}
	return applied, nil
}
