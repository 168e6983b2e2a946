package service

import (
	"context"

	"go.uber.org/zap"

	"satya-chat/internal/domain"
	"satya-chat/internal/repository"
)

// AggregateService calcula los agregados de no-leídos y los listados de
// conversaciones. "Último mensaje" tiene dos lecturas deliberadamente
// distintas: en UnreadConversations es el último no leído del
// interlocutor; en AllConversations es el último del historial completo.
type AggregateService struct {
	logger        *zap.Logger
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
}

func NewAggregateService(
	logger *zap.Logger,
	messages repository.MessageRepository,
	conversations repository.ConversationRepository,
) *AggregateService {
	return &AggregateService{
		logger:        logger,
		messages:      messages,
		conversations: conversations,
	}
}

// UnreadCount es el total de mensajes no leídos dirigidos al usuario.
func (s *AggregateService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.messages.UnreadCount(ctx, userID)
}

func (s *AggregateService) UnreadConversations(ctx context.Context, userID int64) ([]domain.UnreadConversation, error) {
	summaries, err := s.conversations.UnreadSummaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []domain.UnreadConversation{}
	}
	return summaries, nil
}

func (s *AggregateService) AllConversations(ctx context.Context, userID int64) ([]domain.ConversationSummary, error) {
	summaries, err := s.conversations.AllSummaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	return summaries, nil
}

// MarkRead voltea el flag de lectura de todos los mensajes de la
// conversación que no envió el lector. Idempotente.
func (s *AggregateService) MarkRead(ctx context.Context, conversationID, userID int64) error {
	return s.messages.MarkRead(ctx, conversationID, userID)
}
