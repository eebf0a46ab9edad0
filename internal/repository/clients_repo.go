package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/netpanel/netpanel/internal/domain"
)

// maxClientRows bounds list queries so no request scans an unbounded result.
const maxClientRows = 500

// ClientsRepository persists owner-scoped client records. Every query filters
// by owner id; a record id alone never grants access.
type ClientsRepository struct {
	db *sql.DB
}

// NewClientsRepository creates a new clients repository.
func NewClientsRepository(db *sql.DB) *ClientsRepository {
	return &ClientsRepository{db: db}
}

// Create inserts a client for its owner. A duplicate email within the same
// owner maps to domain.ErrClientAlreadyExists; the same email under another
// owner is fine.
func (r *ClientsRepository) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clients (id, user_id, first_name, last_name, email, phone, address, package, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		client.ID, client.UserID, client.FirstName, client.LastName,
		client.Email, client.Phone, client.Address, client.Package, client.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrClientAlreadyExists
	}
	return err
}

// List returns the owner's clients, optionally filtered by a search term
// matched against name and email. The term travels as a bind parameter.
func (r *ClientsRepository) List(ctx context.Context, ownerID uuid.UUID, search string) ([]domain.Client, error) {
	query := `
		SELECT id, user_id, first_name, last_name, email, phone, address, package, created_at
		FROM clients
		WHERE user_id = $1
		ORDER BY created_at
		LIMIT $2
	`
	args := []any{ownerID, maxClientRows}
	if search != "" {
		query = `
			SELECT id, user_id, first_name, last_name, email, phone, address, package, created_at
			FROM clients
			WHERE user_id = $1
			  AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
			ORDER BY created_at
			LIMIT $3
		`
		args = []any{ownerID, "%" + search + "%", maxClientRows}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.FirstName, &c.LastName,
			&c.Email, &c.Phone, &c.Address, &c.Package, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// Delete removes a client only when ownerID owns it. A missing record and an
// ownership mismatch both report domain.ErrClientNotFound.
func (r *ClientsRepository) Delete(ctx context.Context, ownerID, clientID uuid.UUID) error {
	query := `DELETE FROM clients WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, clientID, ownerID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}
