package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"marketplace_messaging/internal/domain"
	apperrors "marketplace_messaging/pkg/errors"
	"marketplace_messaging/pkg/logger"
)

// ErrDuplicateConversation возвращается при нарушении уникального индекса
// (product_id, buyer_id) для активных диалогов. Сервис в этом случае
// перечитывает победивший диалог вместо создания второго.
var ErrDuplicateConversation = errors.New("active conversation already exists")

type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation, firstMessage *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	FindActive(ctx context.Context, productID, buyerID uuid.UUID) (*domain.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationPreview, error)
	Archive(ctx context.Context, id uuid.UUID) error
}

type conversationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewConversationRepository(db *pgxpool.Pool, log logger.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log}
}

// Create создает диалог вместе с первым сообщением в одной транзакции
func (r *conversationRepository) Create(ctx context.Context, conversation *domain.Conversation, firstMessage *domain.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO conversations (id, product_id, buyer_id, seller_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		conversation.ID, conversation.ProductID, conversation.BuyerID, conversation.SellerID,
		conversation.Status, conversation.CreatedAt, conversation.UpdatedAt,
	).Scan(&conversation.CreatedAt, &conversation.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateConversation
		}
		r.log.Error("Failed to create conversation", "error", err)
		return err
	}

	msgQuery := `
		INSERT INTO messages (id, conversation_id, sender_id, content, image_url, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		RETURNING created_at
	`

	err = tx.QueryRow(ctx, msgQuery,
		firstMessage.ID, conversation.ID, firstMessage.SenderID,
		firstMessage.Content, firstMessage.ImageURL, firstMessage.CreatedAt,
	).Scan(&firstMessage.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create first message", "error", err)
		return err
	}
	firstMessage.ConversationID = conversation.ID

	return tx.Commit(ctx)
}

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, product_id, buyer_id, seller_id, status, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	conversation := &domain.Conversation{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&conversation.ID, &conversation.ProductID, &conversation.BuyerID, &conversation.SellerID,
		&conversation.Status, &conversation.CreatedAt, &conversation.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get conversation by ID", "error", err)
		return nil, err
	}

	return conversation, nil
}

func (r *conversationRepository) FindActive(ctx context.Context, productID, buyerID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, product_id, buyer_id, seller_id, status, created_at, updated_at
		FROM conversations
		WHERE product_id = $1 AND buyer_id = $2 AND status = $3
	`

	conversation := &domain.Conversation{}
	err := r.db.QueryRow(ctx, query, productID, buyerID, domain.ConversationStatusActive).Scan(
		&conversation.ID, &conversation.ProductID, &conversation.BuyerID, &conversation.SellerID,
		&conversation.Status, &conversation.CreatedAt, &conversation.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to find active conversation", "error", err)
		return nil, err
	}

	return conversation, nil
}

// ListForUser возвращает активные диалоги пользователя с превью последнего
// сообщения и количеством непрочитанных, отсортированные по updated_at
func (r *conversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationPreview, error) {
	query := `
		SELECT c.id, c.status, c.updated_at,
		       p.id, p.title, p.image_url, p.price, p.currency,
		       u.id, u.display_name, u.avatar_url,
		       lm.content, lm.sender_id, lm.created_at,
		       COALESCE(un.cnt, 0) AS unread_count
		FROM conversations c
		JOIN products p ON p.id = c.product_id
		JOIN users u ON u.id = CASE WHEN c.buyer_id = $1 THEN c.seller_id ELSE c.buyer_id END
		LEFT JOIN LATERAL (
			SELECT m.content, m.sender_id, m.created_at
			FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC
			LIMIT 1
		) lm ON true
		LEFT JOIN LATERAL (
			SELECT count(*) AS cnt
			FROM messages m
			WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.read = false
		) un ON true
		WHERE (c.buyer_id = $1 OR c.seller_id = $1) AND c.status = $2
		ORDER BY c.updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, domain.ConversationStatusActive)
	if err != nil {
		r.log.Error("Failed to list conversations", "error", err)
		return nil, err
	}
	defer rows.Close()

	var previews []*domain.ConversationPreview
	for rows.Next() {
		preview := &domain.ConversationPreview{}
		var lmContent *string
		var lmSenderID *uuid.UUID
		var lmCreatedAt *time.Time

		err := rows.Scan(
			&preview.ID, &preview.Status, &preview.UpdatedAt,
			&preview.Product.ID, &preview.Product.Title, &preview.Product.ImageURL,
			&preview.Product.Price, &preview.Product.Currency,
			&preview.Interlocutor.ID, &preview.Interlocutor.DisplayName, &preview.Interlocutor.AvatarURL,
			&lmContent, &lmSenderID, &lmCreatedAt,
			&preview.UnreadCount,
		)
		if err != nil {
			r.log.Error("Failed to scan conversation preview", "error", err)
			return nil, err
		}

		if lmContent != nil && lmSenderID != nil && lmCreatedAt != nil {
			preview.LastMessage = &domain.LastMessagePreview{
				Content:      *lmContent,
				IsOwnMessage: *lmSenderID == userID,
				CreatedAt:    *lmCreatedAt,
			}
		}

		previews = append(previews, preview)
	}

	return previews, rows.Err()
}

func (r *conversationRepository) Archive(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE conversations
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, domain.ConversationStatusArchived, time.Now())
	if err != nil {
		r.log.Error("Failed to archive conversation", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
