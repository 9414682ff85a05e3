package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("users: email already registered")

// pgUniqueViolation is the SQLSTATE of a unique constraint violation.
const pgUniqueViolation = "23505"

// Querier is the subset of *pgxpool.Pool the directory needs. Any pgx connection,
// pool or transaction satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Directory implements goSession.PrincipalLookup, goSession.CredentialLookup and
// goSession.PasswordHashUpdater over a users table with columns id, email,
// password_hash, role and is_active.
//
// The pool is owned by the caller; Directory never closes it.
type Directory struct {
	db    Querier
	table string
}

var (
	_ goSession.PrincipalLookup     = (*Directory)(nil)
	_ goSession.CredentialLookup    = (*Directory)(nil)
	_ goSession.PasswordHashUpdater = (*Directory)(nil)
)

// NewDirectory returns a Directory reading from table, or "users" when empty.
func NewDirectory(db Querier, table string) (*Directory, error) {
	if db == nil {
		return nil, errors.New("users: nil querier")
	}
	if table == "" {
		table = "users"
	}
	if !validIdent(table) {
		return nil, fmt.Errorf("users: invalid table identifier %q", table)
	}
	return &Directory{db: db, table: table}, nil
}

// GetByID returns the principal whose numeric id is subjectID. A non-numeric
// subject cannot exist and yields (nil, nil) without a query.
func (d *Directory) GetByID(ctx context.Context, subjectID string) (*goSession.Principal, error) {
	id, err := strconv.ParseInt(subjectID, 10, 64)
	if err != nil || id <= 0 {
		return nil, nil
	}

	creds, err := d.queryOne(ctx, "id = $1", id)
	if err != nil || creds == nil {
		return nil, err
	}
	return &creds.Principal, nil
}

// GetByIdentifier returns the credentials of the user with the given email.
func (d *Directory) GetByIdentifier(ctx context.Context, email string) (*goSession.Credentials, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	return d.queryOne(ctx, "email = $1", email)
}

// Create inserts an active user with the default role and returns it. The email is
// stored as given; a duplicate yields [ErrEmailTaken] via the table's unique index.
func (d *Directory) Create(ctx context.Context, email, passwordHash string) (*goSession.Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" || passwordHash == "" {
		return nil, errors.New("users: email and password hash are required")
	}

	sql := `INSERT INTO ` + d.table + ` (email, password_hash) VALUES ($1, $2) RETURNING id, role::text, is_active`

	var (
		id int64
		p  = goSession.Principal{Email: email}
	)
	err := d.db.QueryRow(ctx, sql, email, passwordHash).Scan(&id, &p.Role, &p.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("users: insert: %w", err)
	}

	p.ID = strconv.FormatInt(id, 10)
	return &p, nil
}

// UpdatePasswordHash replaces the stored hash of subjectID. A subject that no longer
// exists is not an error.
func (d *Directory) UpdatePasswordHash(ctx context.Context, subjectID, hash string) error {
	id, err := strconv.ParseInt(subjectID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("users: invalid subject id %q", subjectID)
	}
	if hash == "" {
		return errors.New("users: empty password hash")
	}

	sql := `UPDATE ` + d.table + ` SET password_hash = $1 WHERE id = $2`
	if _, err := d.db.Exec(ctx, sql, hash, id); err != nil {
		return fmt.Errorf("users: update password hash: %w", err)
	}
	return nil
}

func (d *Directory) queryOne(ctx context.Context, where string, arg any) (*goSession.Credentials, error) {
	sql := `SELECT id, email, password_hash, role::text, is_active FROM ` + d.table + ` WHERE ` + where

	var (
		id    int64
		creds goSession.Credentials
	)
	err := d.db.QueryRow(ctx, sql, arg).Scan(&id, &creds.Email, &creds.PasswordHash, &creds.Role, &creds.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("users: query: %w", err)
	}

	creds.ID = strconv.FormatInt(id, 10)
	return &creds, nil
}

func validIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case r == '.' && i > 0 && i < len(s)-1:
		default:
			return false
		}
	}
	return s != ""
}
