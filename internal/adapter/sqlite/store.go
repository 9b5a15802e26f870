package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/civichub/civichub/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time checks: Store implements the persistence ports.
var (
	_ domain.ComplaintRepository = (*Store)(nil)
	_ domain.TimelineRepository  = (*Store)(nil)
	_ domain.Transactor          = (*Store)(nil)
)

// Store implements the complaint and timeline repositories plus the
// transactor over a single SQLite database. Both tables live in one file, so
// one store can commit the paired writes (complaint + creation event, event
// + status mirror) atomically.
type Store struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready store.
func New(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection avoids SQLITE_BUSY errors and keeps :memory:
	// databases (which are per-connection) coherent.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and
// returns a ready store. Use this when the *sql.DB has been pre-configured
// (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*Store, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (e.g., river).
func (s *Store) DB() *sql.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

// txKey carries an open transaction through a context during InTx.
type txKey struct{}

// querier is the subset of database operations shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction bound to ctx when inside InTx, else the database.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// InTx runs fn inside a single transaction. Repository calls made with the
// context fn receives join that transaction. Nested calls reuse the
// enclosing transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// --- ComplaintRepository ---

func (s *Store) Insert(ctx context.Context, c domain.Complaint) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO complaints (complaint_id, name, email, phone, title, details,
		                         category, location, priority, attachment, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ComplaintID, c.Name, c.Email, c.Phone, c.Title, c.Details,
		c.Category, c.Location, c.Priority, c.Attachment, string(c.Status),
		c.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DuplicateIDError{ComplaintID: c.ComplaintID}
		}
		return fmt.Errorf("inserting complaint: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (domain.Complaint, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT complaint_id, name, email, phone, title, details,
		        category, location, priority, attachment, status, created_at
		 FROM complaints WHERE complaint_id = ?`, id,
	)

	var c domain.Complaint
	var status, createdAt string

	err := row.Scan(&c.ComplaintID, &c.Name, &c.Email, &c.Phone, &c.Title, &c.Details,
		&c.Category, &c.Location, &c.Priority, &c.Attachment, &status, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Complaint{}, domain.ErrComplaintNotFound
		}
		return domain.Complaint{}, fmt.Errorf("scanning complaint: %w", err)
	}

	c.Status = domain.Status(status)
	c.CreatedAt, _ = time.Parse(timeFormat, createdAt)

	return c, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	// Zero rows affected is deliberately not an error: the tracking surface
	// treats the status mirror as best-effort for unknown ids.
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE complaints SET status = ? WHERE complaint_id = ?`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("updating complaint status: %w", err)
	}
	return nil
}

// --- TimelineRepository ---

func (s *Store) Append(ctx context.Context, e domain.TimelineEvent) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO timeline_events (complaint_id, status, note, created_at)
		 VALUES (?, ?, ?, ?)`,
		e.ComplaintID, e.Status, e.Note, e.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("appending timeline event: %w", err)
	}
	return nil
}

func (s *Store) ListByComplaintID(ctx context.Context, id string) ([]domain.TimelineEvent, error) {
	// The rowid tie-break keeps same-second appends in insertion order.
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT complaint_id, status, note, created_at
		 FROM timeline_events WHERE complaint_id = ?
		 ORDER BY created_at ASC, id ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing timeline events: %w", err)
	}
	defer rows.Close()

	var events []domain.TimelineEvent
	for rows.Next() {
		var e domain.TimelineEvent
		var createdAt string
		if err := rows.Scan(&e.ComplaintID, &e.Status, &e.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning timeline event: %w", err)
		}
		e.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		events = append(events, e)
	}

	return events, rows.Err()
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
