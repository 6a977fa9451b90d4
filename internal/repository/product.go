package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"marketplace_messaging/internal/domain"
	apperrors "marketplace_messaging/pkg/errors"
	"marketplace_messaging/pkg/logger"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

type productRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewProductRepository(db *pgxpool.Pool, log logger.Logger) ProductRepository {
	return &productRepository{db: db, log: log}
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, seller_id, title, image_url, price, currency, status, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&product.ID, &product.SellerID, &product.Title, &product.ImageURL,
		&product.Price, &product.Currency, &product.Status,
		&product.CreatedAt, &product.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get product", "error", err)
		return nil, err
	}

	return product, nil
}
