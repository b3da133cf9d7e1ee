package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"streetwatch/internal/identity/models"
	id "streetwatch/pkg/domain"
	"streetwatch/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres error code raised by the users_email_key
// constraint. The store translates it so duplicate emails surface as
// sentinel.ErrConflict instead of crashing the request.
const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, email, password_hash, role, active,
	email_verified, verification_code, verification_code_expiry,
	reset_token, reset_token_expiry, created_at, updated_at`

// PostgresUserStore persists users in PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID), u.FirstName, u.LastName, u.Email, u.PasswordHash,
		string(u.Role), u.Active, u.EmailVerified,
		nullString(u.VerificationCode), u.VerificationCodeExpiry,
		nullString(u.ResetToken), u.ResetTokenExpiry,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return translateErr("create user", err)
	}
	return nil
}

func (s *PostgresUserStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users SET
			first_name = $2, last_name = $3, email = $4, password_hash = $5,
			role = $6, active = $7, email_verified = $8,
			verification_code = $9, verification_code_expiry = $10,
			reset_token = $11, reset_token_expiry = $12, updated_at = $13
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID), u.FirstName, u.LastName, u.Email, u.PasswordHash,
		string(u.Role), u.Active, u.EmailVerified,
		nullString(u.VerificationCode), u.VerificationCodeExpiry,
		nullString(u.ResetToken), u.ResetTokenExpiry, u.UpdatedAt,
	)
	if err != nil {
		return translateErr("update user", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(userID))
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `WHERE email = $1`, email)
}

func (s *PostgresUserStore) FindByVerificationCode(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, sentinel.ErrNotFound
	}
	return s.findOne(ctx, `WHERE verification_code = $1`, code)
}

func (s *PostgresUserStore) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, sentinel.ErrNotFound
	}
	return s.findOne(ctx, `WHERE reset_token = $1`, token)
}

func (s *PostgresUserStore) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *PostgresUserStore) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*models.User, error) {
	var (
		u                uuid.UUID
		user             models.User
		role             string
		verCode, rstToken sql.NullString
	)
	err := row.Scan(
		&u, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash,
		&role, &user.Active, &user.EmailVerified,
		&verCode, &user.VerificationCodeExpiry,
		&rstToken, &user.ResetTokenExpiry,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.ID = id.UserID(u)
	user.Role = models.Role(role)
	user.VerificationCode = verCode.String
	user.ResetToken = rstToken.String
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func translateErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return sentinel.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
