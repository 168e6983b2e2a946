package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"satya-chat/internal/domain"
)

// ErrDuplicatePair indica que otra llamada concurrente creó la conversación
// entre la consulta de existencia y el insert. El resolver lo resuelve
// releyendo; nunca llega al cliente.
var ErrDuplicatePair = errors.New("conversation for this pair already exists")

const uniqueViolationCode = "23505"

// ConversationRepository define el contrato de persistencia para
// conversaciones, participantes y los listados agregados por conversación.
type ConversationRepository interface {
	FindByPair(ctx context.Context, userA, userB int64) (int64, error)
	CreatePair(ctx context.Context, userA, userB int64) (int64, error)
	Participants(ctx context.Context, conversationID int64) ([]int64, error)
	AllSummaries(ctx context.Context, userID int64) ([]domain.ConversationSummary, error)
	UnreadSummaries(ctx context.Context, userID int64) ([]domain.UnreadConversation, error)
	SearchSummaries(ctx context.Context, userID int64, term string) ([]domain.ConversationSummary, error)
}

// PgConversationRepository implementa ConversationRepository usando pgxpool.
type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

// PairKey es la clave canónica del par no ordenado: "min:max". El índice
// único sobre esta columna es lo que cierra la carrera de creación.
func PairKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

func (r *PgConversationRepository) FindByPair(ctx context.Context, userA, userB int64) (int64, error) {
	const query = `
		SELECT conversation_id
		FROM conversations
		WHERE pair_key = $1
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, PairKey(userA, userB)).Scan(&id)
	return id, err
}

// CreatePair inserta la conversación y sus dos participantes en una sola
// transacción. Una violación del índice único sobre pair_key se traduce a
// ErrDuplicatePair.
func (r *PgConversationRepository) CreatePair(ctx context.Context, userA, userB int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	const insertConversation = `
		INSERT INTO conversations (pair_key, created_at, updated_at)
		VALUES ($1, $2, $2)
		RETURNING conversation_id
	`
	var id int64
	if err := tx.QueryRow(ctx, insertConversation, PairKey(userA, userB), now).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, ErrDuplicatePair
		}
		return 0, err
	}

	const insertParticipants = `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2), ($1, $3)
	`
	if _, err := tx.Exec(ctx, insertParticipants, id, userA, userB); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PgConversationRepository) Participants(ctx context.Context, conversationID int64) ([]int64, error) {
	const query = `
		SELECT user_id
		FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY user_id
	`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		participants = append(participants, id)
	}
	return participants, rows.Err()
}

// AllSummaries lista todas las conversaciones con al menos un mensaje,
// ordenadas por actividad. El preview es el último mensaje de la
// conversación completa; el desempate por message_id sigue el orden de
// inserción cuando los timestamps coinciden.
func (r *PgConversationRepository) AllSummaries(ctx context.Context, userID int64) ([]domain.ConversationSummary, error) {
	const query = `
		SELECT c.conversation_id, c.updated_at,
		       (SELECT COUNT(*)
		        FROM messages m_count
		        WHERE m_count.conversation_id = c.conversation_id
		          AND m_count.sender_id <> $1
		          AND m_count.is_read = FALSE) AS unread_count,
		       (SELECT m_last.content
		        FROM messages m_last
		        WHERE m_last.conversation_id = c.conversation_id
		        ORDER BY m_last.sent_at DESC, m_last.message_id DESC
		        LIMIT 1) AS last_message,
		       u.user_id, u.username, COALESCE(u.photo, '')
		FROM conversations c
		JOIN conversation_participants cp
		  ON cp.conversation_id = c.conversation_id AND cp.user_id = $1
		JOIN conversation_participants cp2
		  ON cp2.conversation_id = c.conversation_id AND cp2.user_id <> $1
		JOIN users u ON u.user_id = cp2.user_id
		WHERE EXISTS (
			SELECT 1 FROM messages m_exists
			WHERE m_exists.conversation_id = c.conversation_id
		)
		ORDER BY c.updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary
	for rows.Next() {
		var s domain.ConversationSummary
		err := rows.Scan(
			&s.ConversationID,
			&s.UpdatedAt,
			&s.UnreadCount,
			&s.LastMessage,
			&s.OtherUserID,
			&s.OtherUsername,
			&s.OtherPhoto,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// UnreadSummaries agrupa los mensajes no leídos por conversación. El
// preview se toma solo entre los mensajes no leídos del interlocutor.
func (r *PgConversationRepository) UnreadSummaries(ctx context.Context, userID int64) ([]domain.UnreadConversation, error) {
	const query = `
		SELECT c.conversation_id,
		       COUNT(*) AS unread_count,
		       (SELECT m2.sender_id
		        FROM messages m2
		        WHERE m2.conversation_id = c.conversation_id AND m2.sender_id <> $1
		        ORDER BY m2.sent_at DESC, m2.message_id DESC
		        LIMIT 1) AS last_sender_id,
		       (SELECT m2.content
		        FROM messages m2
		        WHERE m2.conversation_id = c.conversation_id AND m2.sender_id <> $1
		        ORDER BY m2.sent_at DESC, m2.message_id DESC
		        LIMIT 1) AS last_message,
		       (SELECT u2.username
		        FROM messages m3
		        JOIN users u2 ON u2.user_id = m3.sender_id
		        WHERE m3.conversation_id = c.conversation_id AND m3.sender_id <> $1
		        ORDER BY m3.sent_at DESC, m3.message_id DESC
		        LIMIT 1) AS last_sender_username,
		       (SELECT COALESCE(u2.photo, '')
		        FROM messages m3
		        JOIN users u2 ON u2.user_id = m3.sender_id
		        WHERE m3.conversation_id = c.conversation_id AND m3.sender_id <> $1
		        ORDER BY m3.sent_at DESC, m3.message_id DESC
		        LIMIT 1) AS last_sender_photo
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.conversation_id
		JOIN messages m ON m.conversation_id = c.conversation_id
		WHERE cp.user_id = $1 AND m.sender_id <> $1 AND m.is_read = FALSE
		GROUP BY c.conversation_id, c.updated_at
		ORDER BY c.updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.UnreadConversation
	for rows.Next() {
		var s domain.UnreadConversation
		err := rows.Scan(
			&s.ConversationID,
			&s.UnreadCount,
			&s.LastSenderID,
			&s.LastMessage,
			&s.LastSenderUsername,
			&s.LastSenderPhoto,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// SearchSummaries lista las conversaciones del solicitante cuyo
// interlocutor coincide con el término (substring, case-insensitive).
func (r *PgConversationRepository) SearchSummaries(ctx context.Context, userID int64, term string) ([]domain.ConversationSummary, error) {
	const query = `
		SELECT c.conversation_id, c.updated_at,
		       COUNT(m.message_id) FILTER (WHERE m.is_read = FALSE AND m.sender_id <> $1) AS unread_count,
		       COALESCE((SELECT m_last.content
		        FROM messages m_last
		        WHERE m_last.conversation_id = c.conversation_id
		        ORDER BY m_last.sent_at DESC, m_last.message_id DESC
		        LIMIT 1), '') AS last_message,
		       u.user_id, u.username, COALESCE(u.email, ''), COALESCE(u.photo, '')
		FROM conversations c
		JOIN conversation_participants cp
		  ON c.conversation_id = cp.conversation_id AND cp.user_id = $1
		JOIN conversation_participants cp2
		  ON c.conversation_id = cp2.conversation_id AND cp2.user_id <> $1
		JOIN users u ON cp2.user_id = u.user_id
		LEFT JOIN messages m ON c.conversation_id = m.conversation_id
		WHERE u.username ILIKE $2 OR u.email ILIKE $2
		GROUP BY c.conversation_id, c.updated_at, u.user_id, u.username, u.email, u.photo
		ORDER BY c.updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID, "%"+term+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary
	for rows.Next() {
		var s domain.ConversationSummary
		err := rows.Scan(
			&s.ConversationID,
			&s.UpdatedAt,
			&s.UnreadCount,
			&s.LastMessage,
			&s.OtherUserID,
			&s.OtherUsername,
			&s.OtherEmail,
			&s.OtherPhoto,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
