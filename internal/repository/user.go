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

// UserRepository отдает публичные карточки пользователей.
// Аутентификация живет в отдельном сервисе, здесь только отображаемые данные
type UserRepository interface {
	GetSummary(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error)
}

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) GetSummary(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error) {
	query := `
		SELECT id, display_name, avatar_url
		FROM users
		WHERE id = $1
	`

	summary := &domain.UserSummary{}
	err := r.db.QueryRow(ctx, query, id).Scan(&summary.ID, &summary.DisplayName, &summary.AvatarURL)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get user summary", "error", err)
		return nil, err
	}

	return summary, nil
}
