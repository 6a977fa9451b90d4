package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"marketplace_messaging/internal/domain"
	apperrors "marketplace_messaging/pkg/errors"
	"marketplace_messaging/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListPage возвращает страницу сообщений от новых к старым и общее количество
	ListPage(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]*domain.Message, int64, error)
	// MarkRead помечает прочитанными только чужие сообщения, идемпотентно
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID, messageIDs []uuid.UUID) ([]uuid.UUID, error)
	// MarkConversationRead помечает прочитанными все непрочитанные чужие сообщения диалога
	MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) ([]uuid.UUID, error)
	SetEdited(ctx context.Context, message *domain.Message) error
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

// Create вставляет сообщение и поднимает updated_at диалога в одной транзакции
func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, image_url, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		RETURNING created_at
	`

	err = tx.QueryRow(ctx, query,
		message.ID, message.ConversationID, message.SenderID,
		message.Content, message.ImageURL, message.CreatedAt,
	).Scan(&message.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create message", "error", err)
		return err
	}

	bump := `
		UPDATE conversations
		SET updated_at = $2
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, bump, message.ConversationID, message.CreatedAt); err != nil {
		r.log.Error("Failed to bump conversation updated_at", "error", err)
		return err
	}

	return tx.Commit(ctx)
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, image_url, read, edited_at, created_at
		FROM messages
		WHERE id = $1
	`

	message := &domain.Message{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&message.ID, &message.ConversationID, &message.SenderID,
		&message.Content, &message.ImageURL, &message.Read, &message.EditedAt, &message.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get message", "error", err)
		return nil, err
	}

	return message, nil
}

func (r *messageRepository) ListPage(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]*domain.Message, int64, error) {
	var total int64
	countQuery := `SELECT count(*) FROM messages WHERE conversation_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, conversationID).Scan(&total); err != nil {
		r.log.Error("Failed to count messages", "error", err)
		return nil, 0, err
	}

	// От новых к старым: стабильный порядок страниц при параллельных отправках,
	// новые сообщения попадают только на первую страницу
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.image_url, m.read, m.edited_at, m.created_at,
		       u.id, u.display_name, u.avatar_url
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3
	`

	offset := (page - 1) * limit
	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err)
		return nil, 0, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{Sender: &domain.UserSummary{}}
		err := rows.Scan(
			&message.ID, &message.ConversationID, &message.SenderID,
			&message.Content, &message.ImageURL, &message.Read, &message.EditedAt, &message.CreatedAt,
			&message.Sender.ID, &message.Sender.DisplayName, &message.Sender.AvatarURL,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, 0, err
		}
		messages = append(messages, message)
	}

	return messages, total, rows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID, messageIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	query := `
		UPDATE messages
		SET read = true
		WHERE conversation_id = $1 AND id = ANY($2) AND sender_id <> $3 AND read = false
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query, conversationID, messageIDs, readerID)
	if err != nil {
		r.log.Error("Failed to mark messages read", "error", err)
		return nil, err
	}
	defer rows.Close()

	return collectIDs(rows)
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		UPDATE messages
		SET read = true
		WHERE conversation_id = $1 AND sender_id <> $2 AND read = false
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query, conversationID, readerID)
	if err != nil {
		r.log.Error("Failed to mark conversation read", "error", err)
		return nil, err
	}
	defer rows.Close()

	return collectIDs(rows)
}

func (r *messageRepository) SetEdited(ctx context.Context, message *domain.Message) error {
	query := `
		UPDATE messages
		SET content = $2, edited_at = $3
		WHERE id = $1
		RETURNING edited_at
	`

	err := r.db.QueryRow(ctx, query, message.ID, message.Content, time.Now()).Scan(&message.EditedAt)
	if err != nil {
		r.log.Error("Failed to edit message", "error", err)
		return err
	}

	return nil
}

func collectIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
