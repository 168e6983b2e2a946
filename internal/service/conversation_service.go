package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"satya-chat/internal/domain"
	"satya-chat/internal/repository"
)

// ConversationService resuelve la conversación única de un par de
// usuarios: la encuentra o la crea de forma idempotente.
type ConversationService struct {
	logger        *zap.Logger
	users         repository.UserRepository
	conversations repository.ConversationRepository
}

func NewConversationService(
	logger *zap.Logger,
	users repository.UserRepository,
	conversations repository.ConversationRepository,
) *ConversationService {
	return &ConversationService{
		logger:        logger,
		users:         users,
		conversations: conversations,
	}
}

// GetOrCreate devuelve la conversación entre currentUser y recipient,
// creándola si no existe. Dos llamadas concurrentes pueden ver ambas
// "no existe"; la que pierde la carrera recibe ErrDuplicatePair del store
// y se resuelve releyendo, de modo que ambas terminan con el mismo id.
func (s *ConversationService) GetOrCreate(ctx context.Context, currentUserID, recipientID int64) (domain.ConversationInfo, error) {
	if currentUserID == recipientID {
		return domain.ConversationInfo{}, domain.ErrSelfConversation
	}

	if _, err := s.users.GetByID(ctx, currentUserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversationInfo{}, domain.ErrUserNotFound
		}
		return domain.ConversationInfo{}, err
	}
	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversationInfo{}, domain.ErrUserNotFound
		}
		return domain.ConversationInfo{}, err
	}

	id, err := s.conversations.FindByPair(ctx, currentUserID, recipientID)
	if errors.Is(err, pgx.ErrNoRows) {
		id, err = s.conversations.CreatePair(ctx, currentUserID, recipientID)
		if errors.Is(err, repository.ErrDuplicatePair) {
			s.logger.Info("conversation create raced, re-reading",
				zap.Int64("current_user_id", currentUserID),
				zap.Int64("recipient_id", recipientID),
			)
			id, err = s.conversations.FindByPair(ctx, currentUserID, recipientID)
		}
	}
	if err != nil {
		return domain.ConversationInfo{}, err
	}

	return domain.ConversationInfo{
		ConversationID:    id,
		RecipientUsername: recipient.Username,
		RecipientPhoto:    recipient.Photo,
	}, nil
}

// Participants devuelve los ids de los participantes de la conversación.
func (s *ConversationService) Participants(ctx context.Context, conversationID int64) ([]int64, error) {
	participants, err := s.conversations.Participants(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, domain.ErrConversationNotFound
	}
	return participants, nil
}
