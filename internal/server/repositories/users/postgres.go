package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const (
	emailConstraint    = "users_email_key"
	googleIDConstraint = "users_google_id_key"
)

// uniqueError maps a unique violation to the sentinel for the column that
// collided. Anything else stays a db error.
func uniqueError(err error) error {
	switch {
	case dbx.IsUniqueViolationOn(err, emailConstraint):
		return common.ErrEmailExists
	case dbx.IsUniqueViolationOn(err, googleIDConstraint):
		return common.ErrGoogleIDExists
	}
	return fmt.Errorf("db error: %w", err)
}

const userColumns = `id, name, email, password_hash, phone, location, bio, google_id,
		 is_google_user, mfa_enabled, mfa_secret, created_at, last_login`

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, email, password_hash, phone, location, bio, google_id, is_google_user, mfa_enabled, mfa_secret)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, dbx.NullString(user.PasswordHash), dbx.NullString(user.Phone),
		dbx.NullString(user.Location), dbx.NullString(user.Bio), dbx.NullString(user.GoogleID),
		user.IsGoogleUser, user.MFAEnabled, user.MFASecret,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, uniqueError(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u                                            models.User
		passwordHash, phone, location, bio, googleID sql.NullString
		lastLogin                                    sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &passwordHash, &phone, &location, &bio, &googleID,
		&u.IsGoogleUser, &u.MFAEnabled, &u.MFASecret, &u.CreatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.PasswordHash = passwordHash.String
	u.Phone = phone.String
	u.Location = location.String
	u.Bio = bio.String
	u.GoogleID = googleID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET name = $1, email = $2, phone = $3, location = $4, bio = $5
		 WHERE id = $6`

	res, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, dbx.NullString(user.Phone), dbx.NullString(user.Location),
		dbx.NullString(user.Bio), user.ID)
	if err != nil {
		return uniqueError(err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) LinkGoogle(ctx context.Context, id string, googleID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET google_id = $1, is_google_user = TRUE WHERE id = $2`, googleID, id)
	if err != nil {
		return uniqueError(err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the user; owned rows go with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
