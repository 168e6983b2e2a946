package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"satya-chat/internal/domain"
)

// MessageRepository define el contrato de persistencia para mensajes y
// los agregados de no-leídos.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, senderID int64, content string) (domain.Message, error)
	ListByConversation(ctx context.Context, conversationID int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID int64) error
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

// PgMessageRepository implementa MessageRepository usando pgxpool.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

// Create inserta el mensaje con timestamp asignado por el servidor y
// actualiza updated_at de la conversación al mismo instante, ambos en una
// transacción. updated_at es la clave de orden de los listados.
func (r *PgMessageRepository) Create(ctx context.Context, conversationID, senderID int64, content string) (domain.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Message{}, err
	}
	defer tx.Rollback(ctx)

	sentAt := time.Now().UTC()

	const insertMessage = `
		INSERT INTO messages (conversation_id, sender_id, content, sent_at, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING message_id
	`
	var id int64
	if err := tx.QueryRow(ctx, insertMessage, conversationID, senderID, content, sentAt).Scan(&id); err != nil {
		return domain.Message{}, err
	}

	const touchConversation = `
		UPDATE conversations SET updated_at = $2 WHERE conversation_id = $1
	`
	if _, err := tx.Exec(ctx, touchConversation, conversationID, sentAt); err != nil {
		return domain.Message{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Message{}, err
	}

	return domain.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		SentAt:         sentAt,
	}, nil
}

func (r *PgMessageRepository) ListByConversation(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	const query = `
		SELECT m.message_id, m.conversation_id, m.sender_id,
		       u.username AS sender_name, COALESCE(u.photo, '') AS sender_photo,
		       m.content, m.sent_at, m.is_read
		FROM messages m
		JOIN users u ON m.sender_id = u.user_id
		WHERE m.conversation_id = $1
		ORDER BY m.sent_at ASC, m.message_id ASC
	`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.SenderName,
			&m.SenderPhoto,
			&m.Content,
			&m.SentAt,
			&m.Read,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkRead marca como leídos todos los mensajes de la conversación que no
// envió el lector. Idempotente: repetirlo no cambia nada.
func (r *PgMessageRepository) MarkRead(ctx context.Context, conversationID, readerID int64) error {
	const query = `
		UPDATE messages
		SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = FALSE
	`
	_, err := r.pool.Exec(ctx, query, conversationID, readerID)
	return err
}

func (r *PgMessageRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversation_participants cp ON m.conversation_id = cp.conversation_id
		WHERE cp.user_id = $1 AND m.sender_id <> $1 AND m.is_read = FALSE
	`
	var count int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}
