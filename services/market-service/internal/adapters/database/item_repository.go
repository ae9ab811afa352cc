package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bazaar/services/market-service/internal/domain/listings"
)

const itemColumns = `id, seller_username, title, COALESCE(description, ''), price,
	COALESCE(image_url, ''), is_sold, created_at, updated_at`

// PostgresItemRepository implements listings.Repository
type PostgresItemRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresItemRepository(pool *pgxpool.Pool) *PostgresItemRepository {
	return &PostgresItemRepository{pool: pool}
}

func scanItem(row pgx.Row) (*listings.Item, error) {
	var item listings.Item
	err := row.Scan(
		&item.ID,
		&item.SellerUsername,
		&item.Title,
		&item.Description,
		&item.Price,
		&item.ImageURL,
		&item.IsSold,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PostgresItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]*listings.Item, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	result := []*listings.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return result, nil
}

func (r *PostgresItemRepository) CreateItem(ctx context.Context, item *listings.Item) error {
	query := `
		INSERT INTO items (id, seller_username, title, description, price, image_url, is_sold, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		item.ID,
		item.SellerUsername,
		item.Title,
		item.Description,
		item.Price,
		item.ImageURL,
		item.IsSold,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (r *PostgresItemRepository) GetItemByID(ctx context.Context, itemID uuid.UUID) (*listings.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	item, err := scanItem(r.pool.QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (r *PostgresItemRepository) GetItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]*listings.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ANY($1)`
	return r.queryItems(ctx, query, itemIDs)
}

// MarkSold only touches unsold rows so repeated calls leave updated_at alone
func (r *PostgresItemRepository) MarkSold(ctx context.Context, itemID uuid.UUID) error {
	query := `UPDATE items SET is_sold = TRUE, updated_at = NOW() WHERE id = $1 AND is_sold = FALSE`
	if _, err := r.pool.Exec(ctx, query, itemID); err != nil {
		return fmt.Errorf("failed to mark item sold: %w", err)
	}
	return nil
}

func (r *PostgresItemRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, itemID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (r *PostgresItemRepository) ListAvailableItems(ctx context.Context) ([]*listings.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE is_sold = FALSE ORDER BY created_at DESC`
	return r.queryItems(ctx, query)
}

func (r *PostgresItemRepository) ListItemsBySeller(ctx context.Context, seller string, sold bool) ([]*listings.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE seller_username = $1 AND is_sold = $2 ORDER BY created_at DESC`
	return r.queryItems(ctx, query, seller, sold)
}
