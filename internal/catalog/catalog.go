// Package catalog persists scan results to PostgreSQL. One row per
// logical asset (a file, or a whole frame sequence keyed by its
// pattern path), upserted so repeated scans refresh in place.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	sqldblogger "github.com/simukti/sqldb-logger"

	"github.com/kettleby/slate/pkg/logger"
)

const (
	sqlDialect          = "postgres"
	sqlConnectionString = "host=%s user=%s password=%s dbname=%s port=%s sslmode=disable"
)

var (
	//go:embed migrations/*.sql
	migrations embed.FS

	log = logger.Get("Catalog")
)

type Config struct {
	User     string `yaml:"username" env:"DB_USERNAME" env-required:"true"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"SLATE_DB"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
}

// Statistics is the aggregate view the scan summary prints.
type Statistics struct {
	TotalAssets   int64
	TotalBytes    int64
	SequenceCount int64
	ErrorCount    int64
	CountByKind   map[string]int64
}

type Store struct {
	rawDb *sql.DB
	db    *sqlx.DB
}

func New() *Store {
	return &Store{}
}

// Connect opens the database connection, retrying the initial ping to
// ride out a database that is still starting up, then applies any
// pending embedded migrations.
func (s *Store) Connect(config Config) error {
	dsn := fmt.Sprintf(sqlConnectionString, config.Host, config.User, config.Password, config.Name, config.Port)
	rawDb, err := sql.Open(sqlDialect, dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	rawDb = sqldblogger.OpenDriver(dsn, rawDb.Driver(), &sqlLogger{log})

	attempt := 1
	for {
		if err := rawDb.Ping(); err != nil {
			if attempt >= 5 {
				log.Emit(logger.ERROR, "All attempts FAILED!\n")
				return err
			}

			log.Emit(logger.WARNING, "Attempt (%v/5) failed... Retrying in 3s\n", attempt)
			attempt++
			time.Sleep(time.Second * 3)
			continue
		}

		break
	}

	s.rawDb = rawDb
	s.db = sqlx.NewDb(rawDb, sqlDialect)

	if err := s.executeMigrations(); err != nil {
		return err
	}

	log.Emit(logger.SUCCESS, "Catalog connection complete!\n")
	return nil
}

// executeMigrations runs the comp-time embedded SQL migrations (found
// in the 'migrations' dir in this package) against the connected DB.
func (s *Store) executeMigrations() error {
	if s.rawDb == nil {
		return errors.New("cannot execute migrations before the catalog has connected")
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLogger{log})
	if err := goose.SetDialect(sqlDialect); err != nil {
		return fmt.Errorf("failed to set dialect for DB migration: %w", err)
	}

	log.Emit(logger.INFO, "Checking for pending DB migrations...\n")
	if err := goose.Up(s.rawDb, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	if s.rawDb == nil {
		return nil
	}
	return s.rawDb.Close()
}

// WrapTx starts a transaction and calls the provided function. If the
// function errors the transaction is rolled back, otherwise committed.
func (s *Store) WrapTx(f func(tx *sqlx.Tx) error) error {
	if s.db == nil {
		return errors.New("catalog has not yet connected")
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := f(tx); err != nil {
		log.Errorf("Transaction failed... rolling back. Error: %s\n", err.Error())
		return err
	}

	return tx.Commit()
}

// sqlLogger bridges the driver-level query log into the application
// logger at the appropriate levels.
type sqlLogger struct {
	logger logger.Logger
}

func (l *sqlLogger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]any) {
	template := "%s - %v\n"
	switch level {
	case sqldblogger.LevelTrace, sqldblogger.LevelDebug, sqldblogger.LevelInfo:
		duration := data["duration"]
		if query, ok := data["query"]; ok {
			l.logger.Verbosef("%s [%.2fms] -- %s\n", msg, duration, query)
		} else {
			l.logger.Verbosef(template, msg, data)
		}
	case sqldblogger.LevelError:
		l.logger.Errorf(template, msg, data)
	}
}

// gooseLogger satisfies goose's std-log-shaped interface.
type gooseLogger struct {
	logger logger.Logger
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debugf(format, v...)
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatalf(format, v...)
}
