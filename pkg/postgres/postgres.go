// Package postgres opens database/sql handles for PostgreSQL and provides the
// transaction helper and error classification shared by every repository.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

type Config struct {
	Driver  string
	Host    string
	Port    int
	User    string
	Pass    string
	DB      string
	SSLMode string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Pass),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.DB,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}

func Open(cfg Config) (*sql.DB, error) {
	driver := cfg.Driver
	switch driver {
	case "":
		driver = DriverPgx
	case DriverPgx, DriverPq:
	default:
		return nil, fmt.Errorf("unsupported postgres driver %q", driver)
	}

	db, err := sql.Open(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return db, nil
}

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics, and committed otherwise.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return &CommitError{Err: err}
	}
	return nil
}

// CommitError marks a failure of COMMIT itself. Whether the transaction took
// effect is unknown to the caller only when the connection dropped; PostgreSQL
// reports a failed commit as a rollback.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return "commit tx: " + e.Err.Error() }
func (e *CommitError) Unwrap() error { return e.Err }

// TextArray renders values as a PostgreSQL array literal, for use with
// `= ANY($1::text::uuid[])`. Both drivers bind it as plain text.
func TextArray[T fmt.Stringer](values []T) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.String())
	}
	b.WriteByte('}')
	return b.String()
}
