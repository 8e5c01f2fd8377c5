// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Warden.
// It persists account records, the transfer outbox and the audit log behind
// a single bun-backed Store that works on SQLite, PostgreSQL and MySQL.
package db // import "github.com/toeirei/warden/internal/db"

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	// Drivers for the three supported backends.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var (
	// store is the process-wide store opened by InitDB.
	store *BunStore

	//go:embed migrations
	embeddedMigrations embed.FS

	// sqlOpenFunc is replaced in tests to observe or fail database opens.
	sqlOpenFunc = sql.Open
)

// InitDB opens the database at dsn, applies pending migrations and makes the
// result the process-wide store returned by DefaultStore.
func InitDB(dbType, dsn string) error {
	s, err := NewStoreFromDSN(dbType, dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	store = s
	return nil
}

// IsInitialized reports whether the package-level store has been set.
func IsInitialized() bool {
	return store != nil
}

// DefaultStore returns the store set up by InitDB, or nil before InitDB.
func DefaultStore() *BunStore {
	return store
}

// Close releases the package-level store and clears it.
func Close() error {
	if store == nil {
		return nil
	}
	err := store.Close()
	store = nil
	return err
}

// maintenanceTimeout bounds RunDBMaintenance when ctx carries no deadline.
const maintenanceTimeout = 2 * time.Minute

// driverFor maps a configured database type to its registered sql driver.
func driverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "mysql":
		return dbType, nil
	case "postgres":
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database type: '%s'", dbType)
	}
}

// RunDBMaintenance runs engine-specific housekeeping on the database at dsn:
//   - sqlite: PRAGMA optimize, VACUUM, a WAL checkpoint and integrity_check
//   - postgres: VACUUM ANALYZE
//   - mysql: OPTIMIZE TABLE for every table
//
// The work stops when ctx is done. Without a deadline on ctx a two minute
// limit applies.
func RunDBMaintenance(ctx context.Context, dbType, dsn string) error {
	driverName, err := driverFor(dbType)
	if err != nil {
		return fmt.Errorf("maintenance: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maintenanceTimeout)
		defer cancel()
	}

	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for maintenance: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	switch dbType {
	case "sqlite":
		return maintainSQLite(ctx, sqlDB)
	case "postgres":
		if _, err := sqlDB.ExecContext(ctx, "VACUUM ANALYZE"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
		return nil
	default:
		return maintainMySQL(ctx, sqlDB)
	}
}

func maintainSQLite(ctx context.Context, sqlDB *sql.DB) error {
	// optimize is advisory and unsupported on some builds.
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		dbLogf("db: sqlite optimize failed (ignored): %v", err)
	}
	if _, err := sqlDB.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("sqlite vacuum failed: %w", err)
	}
	_, _ = sqlDB.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	var res string
	if err := sqlDB.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&res); err != nil {
		return fmt.Errorf("sqlite integrity_check failed: %w", err)
	}
	if res != "ok" {
		return fmt.Errorf("sqlite integrity_check failed: %s", res)
	}
	return nil
}

func maintainMySQL(ctx context.Context, sqlDB *sql.DB) error {
	rows, err := sqlDB.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return fmt.Errorf("mysql show tables failed: %w", err)
	}
	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			_ = rows.Close()
			return fmt.Errorf("mysql read table name failed: %w", err)
		}
		tables = append(tables, table)
	}
	_ = rows.Close()

	var lastErr error
	for _, table := range tables {
		if _, err := sqlDB.ExecContext(ctx, "OPTIMIZE TABLE `"+table+"`"); err != nil {
			dbLogf("db: mysql optimize table %s failed: %v", table, err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("mysql optimize encountered errors: %w", lastErr)
	}
	return nil
}

// poolConfig holds connection pool limits for a store.
type poolConfig struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

// envInt reads a non-negative integer from the environment, falling back to
// def when unset or invalid.
func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// poolConfigFromEnv returns pool limits from the WARDEN_DB_* variables.
func poolConfigFromEnv(dbType, dsn string) poolConfig {
	cfg := poolConfig{
		maxOpen:     envInt("WARDEN_DB_MAX_OPEN_CONNS", 25),
		maxIdle:     envInt("WARDEN_DB_MAX_IDLE_CONNS", 25),
		maxLifetime: time.Duration(envInt("WARDEN_DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		maxIdleTime: time.Duration(envInt("WARDEN_DB_CONN_MAX_IDLE_SECONDS", 60)) * time.Second,
	}
	// Every connection to a plain ":memory:" DSN gets its own database.
	if dbType == "sqlite" && dsn == ":memory:" {
		cfg.maxOpen, cfg.maxIdle = 1, 1
	}
	return cfg
}

// NewStoreFromDSN opens the database, applies pending migrations and returns
// a BunStore over it.
func NewStoreFromDSN(dbType, dsn string) (*BunStore, error) {
	driverName, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool := poolConfigFromEnv(dbType, dsn)
	sqlDB.SetMaxOpenConns(pool.maxOpen)
	sqlDB.SetMaxIdleConns(pool.maxIdle)
	sqlDB.SetConnMaxLifetime(pool.maxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.maxIdleTime)
	dbLogf("db: opened %s driver in %s (max open=%d, idle=%s, lifetime=%s)",
		driverName, time.Since(start), pool.maxOpen, pool.maxIdleTime, pool.maxLifetime)

	migStart := time.Now()
	if err := RunMigrations(sqlDB, dbType); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	dbLogf("db: migrations for %s completed in %s", dbType, time.Since(migStart))
	return &BunStore{bun: createBunDB(sqlDB, dbType), dbType: dbType}, nil
}

// createBunDB wraps sqlDB in a *bun.DB with the dialect for dbType.
// dbType has already been checked by driverFor.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// placeholder returns the n-th (1-based) bind parameter for dbType.
func placeholder(dbType string, n int) string {
	if dbType == "postgres" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// RunMigrations applies the embedded migrations/<dbType>/*.up.sql files in
// name order. Each file runs in its own transaction together with its
// schema_migrations row, so a failed file leaves no trace.
func RunMigrations(db *sql.DB, dbType string) error {
	dir := path.Join("migrations", dbType)
	entries, err := fs.ReadDir(embeddedMigrations, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			dbLogf("db: no migrations embedded for %s", dbType)
			return nil
		}
		return fmt.Errorf("failed to read embedded migrations (%s): %w", dir, err)
	}

	var ups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	if err := ensureSchemaMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	selectQuery := "SELECT 1 FROM schema_migrations WHERE version = " + placeholder(dbType, 1)
	insertQuery := "INSERT INTO schema_migrations(version, applied_at) VALUES(" +
		placeholder(dbType, 1) + ", " + placeholder(dbType, 2) + ")"

	for _, fname := range ups {
		version := strings.TrimSuffix(fname, ".up.sql")

		var applied int
		switch err := db.QueryRow(selectQuery, version).Scan(&applied); {
		case err == nil:
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check migration version %s: %w", version, err)
		}

		file := path.Join(dir, fname)
		data, err := embeddedMigrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", version, err)
		}
		if _, err := tx.Exec(string(data)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %s: %w", version, err)
		}
		if _, err := tx.Exec(insertQuery, version, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", version, err)
		}
		dbLogf("db: applied migration %s for %s", version, dbType)
	}
	return nil
}

// ensureSchemaMigrationsTable creates schema_migrations if missing.
// MySQL cannot index an unbounded TEXT column, so it gets a VARCHAR key.
func ensureSchemaMigrationsTable(db *sql.DB, dbType string) error {
	keyType := "TEXT"
	if dbType == "mysql" {
		keyType = "VARCHAR(191)"
	}
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS schema_migrations (version " + keyType + " PRIMARY KEY, applied_at TIMESTAMP)")
	return err
}
