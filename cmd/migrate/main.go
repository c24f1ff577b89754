package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"koubyte-be/internal/config"
	"koubyte-be/internal/db"
	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

const (
	sectionUp   = "Up"
	sectionDown = "Down"
	marker      = "-- +migrate "
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up, down or status")
	dir := flag.String("dir", "./migrations", "directory holding the .sql migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	logger.Init(cfg.AppEnv, cfg.LogFile)
	defer logger.Sync()

	conn, err := db.NewDatabase(cfg)
	if err != nil {
		logger.L().Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	if err := run(conn, *mode, *dir); err != nil {
		logger.L().Fatal("migration failed", zap.String("mode", *mode), zap.Error(err))
	}
}

func run(conn *sql.DB, mode, migrationsDir string) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	switch mode {
	case "up":
		return migrateUp(conn, files)
	case "down":
		return migrateDown(conn, files)
	case "status":
		return status(conn, files)
	default:
		return fmt.Errorf("unknown mode %q (use up, down or status)", mode)
	}
}

func applied(conn *sql.DB, version string) (bool, error) {
	var exists bool
	err := conn.QueryRow(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	return exists, err
}

// execInTx runs a migration body and its bookkeeping statement atomically.
func execInTx(conn *sql.DB, body, record, version string) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(body); err != nil {
		return err
	}
	if _, err := tx.Exec(record, version); err != nil {
		return err
	}
	return tx.Commit()
}

func migrateUp(conn *sql.DB, files []string) error {
	log := logger.L()
	count := 0

	for _, file := range files {
		version := filepath.Base(file)

		done, err := applied(conn, version)
		if err != nil {
			return fmt.Errorf("check %s: %w", version, err)
		}
		if done {
			log.Debug("migration already applied", zap.String("version", version))
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		body := section(string(content), sectionUp)
		if strings.TrimSpace(body) == "" {
			return fmt.Errorf("%s has no %q section", version, marker+sectionUp)
		}

		log.Info("applying migration", zap.String("version", version))
		if err := execInTx(conn, body, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return fmt.Errorf("apply %s: %w", version, err)
		}
		count++
	}

	log.Info("migrations up to date", zap.Int("applied", count))
	return nil
}

// migrateDown rolls back the most recently applied migration only.
func migrateDown(conn *sql.DB, files []string) error {
	log := logger.L()

	var last string
	err := conn.QueryRow(`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find last migration: %w", err)
	}

	var file string
	for _, f := range files {
		if filepath.Base(f) == last {
			file = f
			break
		}
	}
	if file == "" {
		return fmt.Errorf("migration file not found for version %s", last)
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	log.Info("rolling back migration", zap.String("version", last))
	if err := execInTx(conn, section(string(content), sectionDown),
		`DELETE FROM schema_migrations WHERE version = $1`, last); err != nil {
		return fmt.Errorf("roll back %s: %w", last, err)
	}
	log.Info("rollback complete", zap.String("version", last))
	return nil
}

func status(conn *sql.DB, files []string) error {
	log := logger.L()
	for _, file := range files {
		version := filepath.Base(file)
		done, err := applied(conn, version)
		if err != nil {
			return fmt.Errorf("check %s: %w", version, err)
		}
		log.Info("migration", zap.String("version", version), zap.Bool("applied", done))
	}
	return nil
}

// section returns the lines between "-- +migrate <name>" and the next marker.
func section(content, name string) string {
	var b strings.Builder
	in := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, marker) {
			if in {
				break
			}
			in = strings.TrimSpace(strings.TrimPrefix(trimmed, marker)) == name
			continue
		}
		if in {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
