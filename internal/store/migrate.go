// pattern: Imperative Shell

package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigrations applies all pending migrations. An already-current schema
// (migrate.ErrNoChange) is not an error.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	drv, err := newMigrateDriver(db)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

const migrationsTable = "schema_migrations"

// migrateDriver implements golang-migrate's database.Driver against a
// sql.DB opened with the ncruces sqlite driver. The stock sqlite3 driver
// cannot be used: it imports mattn/go-sqlite3, which registers the same
// "sqlite3" driver name and collides at init time.
type migrateDriver struct {
	db     *sql.DB
	locked atomic.Bool
}

func newMigrateDriver(db *sql.DB) (database.Driver, error) {
	d := &migrateDriver{db: db}
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (version uint64, dirty bool);"+
			"CREATE UNIQUE INDEX IF NOT EXISTS version_unique ON %s (version);",
		migrationsTable, migrationsTable)
	if _, err := db.Exec(query); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *migrateDriver) Open(string) (database.Driver, error) {
	return nil, errors.New("open by URL unsupported; construct with an existing connection")
}

func (d *migrateDriver) Close() error { return nil }

func (d *migrateDriver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (d *migrateDriver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

func (d *migrateDriver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	return d.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(string(body))
		return err
	})
}

func (d *migrateDriver) SetVersion(version int, dirty bool) error {
	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM " + migrationsTable); err != nil {
			return err
		}
		if version >= 0 || (version == database.NilVersion && dirty) {
			_, err := tx.Exec(
				fmt.Sprintf("INSERT INTO %s (version, dirty) VALUES (?, ?)", migrationsTable),
				version, dirty)
			return err
		}
		return nil
	})
}

func (d *migrateDriver) Version() (int, bool, error) {
	var version int
	var dirty bool
	err := d.db.QueryRow("SELECT version, dirty FROM " + migrationsTable + " LIMIT 1").
		Scan(&version, &dirty)
	if err != nil {
		return database.NilVersion, false, nil
	}
	return version, dirty, nil
}

func (d *migrateDriver) Drop() error {
	rows, err := d.db.Query("SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := d.db.Exec("DROP TABLE " + t); err != nil {
			return err
		}
	}
	return nil
}

func (d *migrateDriver) inTx(fn func(*sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
