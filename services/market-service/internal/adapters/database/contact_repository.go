package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bazaar/services/market-service/internal/domain/contacts"
)

// PostgresContactRepository implements contacts.Repository
type PostgresContactRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresContactRepository(pool *pgxpool.Pool) *PostgresContactRepository {
	return &PostgresContactRepository{pool: pool}
}

func (r *PostgresContactRepository) CreateRequest(ctx context.Context, req *contacts.ContactRequest) error {
	query := `
		INSERT INTO contact_requests (id, item_id, seller_username, buyer_username, phone, facebook_handle, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
	`
	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.ItemID,
		req.SellerUsername,
		req.BuyerUsername,
		req.Phone,
		req.Facebook,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contact request: %w", err)
	}
	return nil
}

func (r *PostgresContactRepository) ListRequestedItemIDs(ctx context.Context, buyer string) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT item_id FROM contact_requests WHERE buyer_username = $1`, buyer)
	if err != nil {
		return nil, fmt.Errorf("failed to query requested items: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresContactRepository) ListBySeller(ctx context.Context, seller string) ([]*contacts.ContactRequest, error) {
	return r.list(ctx, "seller_username", seller)
}

func (r *PostgresContactRepository) ListByBuyer(ctx context.Context, buyer string) ([]*contacts.ContactRequest, error) {
	return r.list(ctx, "buyer_username", buyer)
}

// list filters on column, which is always one of the constants above.
func (r *PostgresContactRepository) list(ctx context.Context, column, username string) ([]*contacts.ContactRequest, error) {
	query := `
		SELECT id, item_id, seller_username, buyer_username, COALESCE(phone, ''), COALESCE(facebook_handle, ''), created_at
		FROM contact_requests
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact requests: %w", err)
	}
	defer rows.Close()

	result := []*contacts.ContactRequest{}
	for rows.Next() {
		var req contacts.ContactRequest
		if err := rows.Scan(
			&req.ID,
			&req.ItemID,
			&req.SellerUsername,
			&req.BuyerUsername,
			&req.Phone,
			&req.Facebook,
			&req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contact request: %w", err)
		}
		result = append(result, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contact requests: %w", err)
	}
	return result, nil
}
