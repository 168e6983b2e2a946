package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"satya-chat/internal/domain"
	"satya-chat/internal/repository"
)

const (
	minSearchTermLength = 3
	maxNewContacts      = 10
)

// SearchService resuelve search_users: conversaciones existentes cuyo
// interlocutor coincide con el término y usuarios nuevos sin conversación
// previa con el solicitante.
type SearchService struct {
	logger        *zap.Logger
	users         repository.UserRepository
	conversations repository.ConversationRepository
	limiter       SearchRateLimiter
}

func NewSearchService(
	logger *zap.Logger,
	users repository.UserRepository,
	conversations repository.ConversationRepository,
	limiter SearchRateLimiter,
) *SearchService {
	return &SearchService{
		logger:        logger,
		users:         users,
		conversations: conversations,
		limiter:       limiter,
	}
}

// Search valida el término antes de tocar el store: menos de 3 caracteres
// se rechaza de inmediato como control de costo.
func (s *SearchService) Search(ctx context.Context, requesterID int64, term string) (domain.SearchResult, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < minSearchTermLength {
		return domain.SearchResult{}, domain.ErrQueryTooShort
	}
	if s.limiter != nil && !s.limiter.Allow(strconv.FormatInt(requesterID, 10)) {
		return domain.SearchResult{}, domain.ErrSearchRateLimited
	}

	conversations, err := s.conversations.SearchSummaries(ctx, requesterID, term)
	if err != nil {
		return domain.SearchResult{}, err
	}
	newUsers, err := s.users.SearchNewContacts(ctx, requesterID, term, maxNewContacts)
	if err != nil {
		return domain.SearchResult{}, err
	}

	if conversations == nil {
		conversations = []domain.ConversationSummary{}
	}
	if newUsers == nil {
		newUsers = []domain.User{}
	}
	return domain.SearchResult{Conversations: conversations, NewUsers: newUsers}, nil
}
