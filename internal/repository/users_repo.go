package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/netpanel/netpanel/internal/domain"
)

const userColumns = `id, email, first_name, last_name, password_hash, salt,
       failed_login_attempts, account_locked, reset_token, reset_token_expiry,
       created_at, updated_at`

// UsersRepository persists users and their password history. It implements
// auth.AccountStore; all queries are parameterized.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// CreateUser inserts the user row and its initial history entry in one
// transaction. A duplicate email maps to domain.ErrUserAlreadyExists.
func (r *UsersRepository) CreateUser(ctx context.Context, user *domain.User, initial *domain.PasswordHistoryEntry) error {
	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO users (id, email, first_name, last_name, password_hash, salt, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.ExecContext(ctx, query,
			user.ID, user.Email, user.FirstName, user.LastName,
			user.PasswordHash, user.Salt, user.CreatedAt, user.UpdatedAt,
		); err != nil {
			return err
		}
		return insertHistoryTx(ctx, tx, initial)
	})
	if isUniqueViolation(err) {
		return domain.ErrUserAlreadyExists
	}
	return err
}

// GetUserByEmail retrieves a user by email.
func (r *UsersRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetUserByID retrieves a user by id.
func (r *UsersRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetUserByResetToken retrieves the user holding an exact, unexpired reset
// token.
func (r *UsersRepository) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1 AND reset_token_expiry > $2`
	return r.scanUser(r.db.QueryRowContext(ctx, query, token, now))
}

// RecordFailedLogin increments the failure counter and sets the locked flag
// once the counter reaches maxAttempts. A single UPDATE keeps concurrent
// failed attempts from under-counting: the increment and the lock decision are
// applied under the same row lock.
func (r *UsersRepository) RecordFailedLogin(ctx context.Context, userID uuid.UUID, maxAttempts int) error {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    account_locked = account_locked OR failed_login_attempts + 1 >= $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, maxAttempts)
	return err
}

// ClearFailedLogins resets the failure counter after a successful login.
func (r *UsersRepository) ClearFailedLogins(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// SetResetToken stores a reset token and its expiry, replacing any
// outstanding token for the user.
func (r *UsersRepository) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	query := `
		UPDATE users
		SET reset_token = $2, reset_token_expiry = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, userID, token, expiry)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// RotatePassword updates hash and salt and appends the history entry
// atomically. With clearLock set it also consumes the reset token and unlocks
// the account.
func (r *UsersRepository) RotatePassword(ctx context.Context, userID uuid.UUID, hash, salt string, entry *domain.PasswordHistoryEntry, clearLock bool) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE users
			SET password_hash = $2, salt = $3, updated_at = NOW()
			WHERE id = $1
		`
		if clearLock {
			query = `
				UPDATE users
				SET password_hash = $2, salt = $3,
				    reset_token = NULL, reset_token_expiry = NULL,
				    failed_login_attempts = 0, account_locked = FALSE,
				    updated_at = NOW()
				WHERE id = $1
			`
		}
		result, err := tx.ExecContext(ctx, query, userID, hash, salt)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrUserNotFound
		}
		return insertHistoryTx(ctx, tx, entry)
	})
}

// RecentPasswordHistory returns the newest limit history entries for a user.
func (r *UsersRepository) RecentPasswordHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PasswordHistoryEntry, error) {
	query := `
		SELECT id, user_id, password_hash, salt, created_at
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var e domain.PasswordHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.PasswordHash, &e.Salt, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func insertHistoryTx(ctx context.Context, tx *sql.Tx, entry *domain.PasswordHistoryEntry) error {
	query := `
		INSERT INTO password_history (id, user_id, password_hash, salt, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.PasswordHash, entry.Salt, entry.CreatedAt,
	)
	return err
}

func (r *UsersRepository) scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.Salt,
		&user.FailedLoginAttempts, &user.AccountLocked,
		&user.ResetToken, &user.ResetTokenExpiry,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
