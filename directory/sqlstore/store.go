package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	scopeAuth "github.com/MrEthical07/scopeAuth"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrDuplicateUsername is returned by Create for a username already stored.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrDuplicateEmail is returned by Create for an email already stored.
var ErrDuplicateEmail = errors.New("email already exists")

const principalColumns = `id, username, password_hash, email, full_name, scopes, disabled, created_at`

// Store reads and updates principals in a SQL database. It is safe for
// concurrent use; concurrency is bounded by the *sql.DB pool.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects to dsn with the driver for dialect and verifies the
// connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return New(db, dialect), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Create inserts p and returns its ID. p.ID is ignored.
func (s *Store) Create(ctx context.Context, p scopeAuth.StoredPrincipal) (int64, error) {
	if p.Username == "" {
		return 0, errors.New("username must not be empty")
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	args := []any{
		p.Username,
		p.PasswordHash,
		nullString(p.Email),
		nullString(p.FullName),
		encodeScopes(p.Scopes),
		p.Disabled,
		createdAt,
	}
	const insert = `INSERT INTO principals (username, password_hash, email, full_name, scopes, disabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	var id int64
	var err error
	if s.dialect == DialectPostgres {
		err = s.db.QueryRowContext(ctx, s.dialect.rebind(insert+` RETURNING id`), args...).Scan(&id)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, insert, args...)
		if err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		if uniqueViolationOnEmail(err) {
			return 0, ErrDuplicateEmail
		}
		if isUniqueViolation(err) {
			return 0, ErrDuplicateUsername
		}
		return 0, unavailable(err)
	}
	return id, nil
}

// FindByUsername implements [scopeAuth.UserDirectory].
func (s *Store) FindByUsername(ctx context.Context, username string) (scopeAuth.StoredPrincipal, error) {
	query := s.dialect.rebind(`SELECT ` + principalColumns + ` FROM principals WHERE username = ?`)
	return s.findOne(ctx, query, username)
}

// FindByID implements [scopeAuth.UserDirectory].
func (s *Store) FindByID(ctx context.Context, id int64) (scopeAuth.StoredPrincipal, error) {
	query := s.dialect.rebind(`SELECT ` + principalColumns + ` FROM principals WHERE id = ?`)
	return s.findOne(ctx, query, id)
}

// UpdatePasswordHash implements [scopeAuth.UserDirectory].
func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, newHash string) error {
	return s.execOne(ctx, `UPDATE principals SET password_hash = ? WHERE id = ?`, newHash, id)
}

// SetDisabled flips the disabled flag of principal id.
func (s *Store) SetDisabled(ctx context.Context, id int64, disabled bool) error {
	return s.execOne(ctx, `UPDATE principals SET disabled = ? WHERE id = ?`, disabled, id)
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (scopeAuth.StoredPrincipal, error) {
	var (
		p        scopeAuth.StoredPrincipal
		email    sql.NullString
		fullName sql.NullString
		scopes   string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID,
		&p.Username,
		&p.PasswordHash,
		&email,
		&fullName,
		&scopes,
		&p.Disabled,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scopeAuth.StoredPrincipal{}, scopeAuth.ErrPrincipalNotFound
		}
		return scopeAuth.StoredPrincipal{}, unavailable(err)
	}

	p.Email = email.String
	p.FullName = fullName.String
	p.Scopes = decodeScopes(scopes)
	return p, nil
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return scopeAuth.ErrPrincipalNotFound
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", scopeAuth.ErrDirectoryUnavailable, err)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func encodeScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

func decodeScopes(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

var _ scopeAuth.UserDirectory = (*Store)(nil)
