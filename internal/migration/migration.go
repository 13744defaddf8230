// Package migration applies the embedded goose migrations.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/lib/pq" // postgres driver for the migration connection
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/db"
)

const DefaultVersionTable = "alize_goose_db_version"

type Config struct {
	ConnectionString string
	VersionTable     string
}

// Up opens a dedicated connection and applies every pending migration.
func Up(ctx context.Context, cfg Config, logger *zap.Logger) error {
	conn, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer conn.Close()

	return Apply(ctx, conn, db.Migrations, cfg.VersionTable, logger)
}

// Apply runs the migrations found under db.MigrationsDir in fsys against conn.
func Apply(ctx context.Context, conn *sql.DB, fsys fs.FS, versionTable string, logger *zap.Logger) error {
	log := logger.Named("migration")

	if versionTable == "" {
		versionTable = DefaultVersionTable
	}

	goose.SetBaseFS(fsys)
	goose.SetTableName(versionTable)
	goose.SetLogger(zapLogger{log.Sugar()})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, conn, db.MigrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}

	log.Info("migrations applied", zap.Int64("migration.version", version))

	return nil
}

// zapLogger adapts zap to goose's Printf/Fatalf logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Printf(format string, v ...any) { l.s.Infof(format, v...) }

func (l zapLogger) Fatalf(format string, v ...any) { l.s.Fatalf(format, v...) }
