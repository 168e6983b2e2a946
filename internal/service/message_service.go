package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"satya-chat/internal/domain"
	"satya-chat/internal/repository"
)

// Recipient es una conexión viva capaz de recibir eventos push.
type Recipient interface {
	Push(event string, data any)
}

// Presence resuelve un usuario a su conexión activa, si la hay.
type Presence interface {
	Lookup(userID int64) (Recipient, bool)
}

// MessageService persiste mensajes y reparte la entrega en vivo a los
// participantes presentes. La entrega es at-most-once: un participante
// sin entrada de presencia no recibe push y verá el mensaje en la próxima
// carga de historial o agregado.
type MessageService struct {
	logger        *zap.Logger
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	users         repository.UserRepository
	presence      Presence
}

func NewMessageService(
	logger *zap.Logger,
	messages repository.MessageRepository,
	conversations repository.ConversationRepository,
	users repository.UserRepository,
	presence Presence,
) *MessageService {
	return &MessageService{
		logger:        logger,
		messages:      messages,
		conversations: conversations,
		users:         users,
		presence:      presence,
	}
}

// Send valida la participación contra el store (el payload no la prueba),
// persiste el mensaje y empuja receive_message a los demás participantes
// conectados. El ack al emisor lo emite el dispatcher con el mensaje
// devuelto; si algo falla aquí no se difunde nada.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID int64, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, domain.ErrEmptyContent
	}

	participants, err := s.conversations.Participants(ctx, conversationID)
	if err != nil {
		return domain.Message{}, err
	}
	if len(participants) == 0 {
		return domain.Message{}, domain.ErrConversationNotFound
	}
	if !containsID(participants, senderID) {
		return domain.Message{}, domain.ErrNotParticipant
	}

	msg, err := s.messages.Create(ctx, conversationID, senderID, content)
	if err != nil {
		return domain.Message{}, err
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		// El mensaje ya está persistido; un perfil ilegible no debe
		// fallar el envío, solo empobrece el payload.
		s.logger.Warn("sender profile lookup failed", zap.Int64("sender_id", senderID), zap.Error(err))
	} else {
		msg.SenderName = sender.Username
		msg.SenderPhoto = sender.Photo
	}

	for _, participantID := range participants {
		if participantID == senderID {
			continue
		}
		if recipient, ok := s.presence.Lookup(participantID); ok {
			recipient.Push("receive_message", msg)
		}
	}

	return msg, nil
}

// List devuelve el historial completo de la conversación en orden de
// envío, con desempate por id cuando los timestamps coinciden.
func (s *MessageService) List(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Message{}, nil
		}
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// Typing es señal efímera: empuja user_typing a los demás participantes
// conectados y traga cualquier fallo. Un destinatario ausente es una
// condición esperada, no un error.
func (s *MessageService) Typing(ctx context.Context, conversationID, userID int64, isTyping bool) {
	participants, err := s.conversations.Participants(ctx, conversationID)
	if err != nil {
		s.logger.Debug("typing participants lookup failed",
			zap.Int64("conversation_id", conversationID), zap.Error(err))
		return
	}
	payload := struct {
		ConversationID int64 `json:"conversation_id"`
		UserID         int64 `json:"user_id"`
		IsTyping       bool  `json:"is_typing"`
	}{conversationID, userID, isTyping}

	for _, participantID := range participants {
		if participantID == userID {
			continue
		}
		if recipient, ok := s.presence.Lookup(participantID); ok {
			recipient.Push("user_typing", payload)
		}
	}
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
