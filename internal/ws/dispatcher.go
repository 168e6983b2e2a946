package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"satya-chat/internal/domain"
	"satya-chat/internal/service"
)

// EventRegistered es la respuesta opcional a register_user; el cliente
// original no la escucha, pero mantiene la disciplina de una respuesta
// terminal por solicitud.
const EventRegistered = "registered"

// Dispatcher enruta cada evento entrante al servicio que corresponde y
// garantiza exactamente una respuesta terminal por solicitud. typing es
// el único evento fire-and-forget.
type Dispatcher struct {
	logger        *zap.Logger
	registry      *Registry
	conversations *service.ConversationService
	messages      *service.MessageService
	aggregates    *service.AggregateService
	search        *service.SearchService
	tokens        *service.TokenService
	storeTimeout  time.Duration
}

func NewDispatcher(
	logger *zap.Logger,
	registry *Registry,
	conversations *service.ConversationService,
	messages *service.MessageService,
	aggregates *service.AggregateService,
	search *service.SearchService,
	tokens *service.TokenService,
	storeTimeout time.Duration,
) *Dispatcher {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Dispatcher{
		logger:        logger,
		registry:      registry,
		conversations: conversations,
		messages:      messages,
		aggregates:    aggregates,
		search:        search,
		tokens:        tokens,
		storeTimeout:  storeTimeout,
	}
}

// Dispatch corre en la goroutine de lectura del cliente. El contexto no
// cuelga de la conexión: un write en vuelo termina o falla por su cuenta
// aunque el cliente se desconecte a mitad de la operación.
func (d *Dispatcher) Dispatch(c *Client, env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), d.storeTimeout)
	defer cancel()

	switch env.Event {
	case EventRegisterUser, EventAuthenticate:
		d.handleRegister(c, env.Data)
	case EventGetConversation:
		d.handleGetConversation(ctx, c, env.Data)
	case EventGetMessages:
		d.handleGetMessages(ctx, c, env.Data)
	case EventSendMessage:
		d.handleSendMessage(ctx, c, env.Data)
	case EventTyping:
		d.handleTyping(ctx, c, env.Data)
	case EventMarkRead:
		d.handleMarkRead(ctx, c, env.Data)
	case EventUnreadCount:
		d.handleUnreadCount(ctx, c, env.Data)
	case EventUnreadConvos:
		d.handleUnreadConversations(ctx, c, env.Data)
	case EventAllConvos:
		d.handleAllConversations(ctx, c, env.Data)
	case EventParticipants:
		d.handleParticipants(ctx, c, env.Data)
	case EventSearchUsers:
		d.handleSearch(ctx, c, env.Data)
	default:
		d.logger.Warn("unknown event", zap.String("event", env.Event), zap.String("client_id", c.ID))
	}
}

func (d *Dispatcher) handleRegister(c *Client, data json.RawMessage) {
	var req RegisterRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == 0 {
		c.Push(EventRegistered, registeredResponse{Success: false, Error: "missing user id"})
		return
	}
	if d.tokens != nil {
		if err := d.tokens.Verify(req.Token, req.UserID); err != nil {
			d.logger.Warn("register token rejected",
				zap.Int64("user_id", req.UserID), zap.String("client_id", c.ID), zap.Error(err))
			c.Push(EventRegistered, registeredResponse{Success: false, Error: "invalid token"})
			return
		}
	}
	d.registry.Register(req.UserID, c)
	d.logger.Info("user registered", zap.Int64("user_id", req.UserID), zap.String("client_id", c.ID))
	c.Push(EventRegistered, registeredResponse{Success: true, UserID: req.UserID})
}

type registeredResponse struct {
	Success bool   `json:"success"`
	UserID  int64  `json:"user_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (d *Dispatcher) handleGetConversation(ctx context.Context, c *Client, data json.RawMessage) {
	var req GetConversationRequest
	if err := json.Unmarshal(data, &req); err != nil || req.CurrentUserID == 0 || req.RecipientID == 0 {
		c.Push(EventConversationCreated, ConversationCreatedResponse{Success: false, Error: "missing required user data"})
		return
	}
	info, err := d.conversations.GetOrCreate(ctx, req.CurrentUserID, req.RecipientID)
	if err != nil {
		c.Push(EventConversationCreated, ConversationCreatedResponse{
			Success: false,
			Error:   failureMessage(err, "failed to resolve conversation"),
		})
		return
	}
	c.Push(EventConversationCreated, ConversationCreatedResponse{
		Success:           true,
		ConversationID:    info.ConversationID,
		RecipientUsername: info.RecipientUsername,
		RecipientPhoto:    info.RecipientPhoto,
	})
}

func (d *Dispatcher) handleGetMessages(ctx context.Context, c *Client, data json.RawMessage) {
	var req GetMessagesRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ConversationID == 0 {
		c.Push(EventMessagesLoaded, MessagesLoadedResponse{Success: false, Error: "missing conversation id"})
		return
	}
	messages, err := d.messages.List(ctx, req.ConversationID)
	if err != nil {
		c.Push(EventMessagesLoaded, MessagesLoadedResponse{
			Success: false,
			Error:   failureMessage(err, "failed to load messages"),
		})
		return
	}
	c.Push(EventMessagesLoaded, MessagesLoadedResponse{
		Success:        true,
		ConversationID: req.ConversationID,
		Messages:       messages,
	})
}

func (d *Dispatcher) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var req SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ConversationID == 0 || req.SenderID == 0 {
		c.Push(EventMessageSent, MessageSentResponse{Success: false, Error: "missing message data"})
		return
	}
	msg, err := d.messages.Send(ctx, req.ConversationID, req.SenderID, req.Content)
	if err != nil {
		c.Push(EventMessageSent, MessageSentResponse{
			Success: false,
			Error:   failureMessage(err, "failed to send message"),
		})
		return
	}
	c.Push(EventMessageSent, MessageSentResponse{Success: true, Message: &msg})
}

func (d *Dispatcher) handleTyping(ctx context.Context, c *Client, data json.RawMessage) {
	var req TypingRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ConversationID == 0 || req.UserID == 0 {
		// Señal efímera: sin respuesta, ni siquiera ante payload inválido.
		return
	}
	d.messages.Typing(ctx, req.ConversationID, req.UserID, req.IsTyping)
}

func (d *Dispatcher) handleMarkRead(ctx context.Context, c *Client, data json.RawMessage) {
	var req MarkReadRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ConversationID == 0 || req.UserID == 0 {
		c.Push(EventMessagesMarkedRead, MarkedReadResponse{Success: false, Error: "missing conversation or user id"})
		return
	}
	if err := d.aggregates.MarkRead(ctx, req.ConversationID, req.UserID); err != nil {
		c.Push(EventMessagesMarkedRead, MarkedReadResponse{
			Success: false,
			Error:   failureMessage(err, "failed to mark messages as read"),
		})
		return
	}
	c.Push(EventMessagesMarkedRead, MarkedReadResponse{Success: true, ConversationID: req.ConversationID})
}

func (d *Dispatcher) handleUnreadCount(ctx context.Context, c *Client, data json.RawMessage) {
	var req UserIDRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == 0 {
		c.Push(EventUnreadCountResult, UnreadCountResponse{UnreadCount: 0})
		return
	}
	count, err := d.aggregates.UnreadCount(ctx, req.UserID)
	if err != nil {
		d.logger.Error("unread count failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		count = 0
	}
	c.Push(EventUnreadCountResult, UnreadCountResponse{UnreadCount: count})
}

func (d *Dispatcher) handleUnreadConversations(ctx context.Context, c *Client, data json.RawMessage) {
	var req UserIDRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == 0 {
		c.Push(EventUnreadConvosResult, UnreadConversationsResponse{Conversations: []domain.UnreadConversation{}})
		return
	}
	conversations, err := d.aggregates.UnreadConversations(ctx, req.UserID)
	if err != nil {
		d.logger.Error("unread conversations failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		conversations = []domain.UnreadConversation{}
	}
	c.Push(EventUnreadConvosResult, UnreadConversationsResponse{Conversations: conversations})
}

func (d *Dispatcher) handleAllConversations(ctx context.Context, c *Client, data json.RawMessage) {
	var req UserIDRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == 0 {
		c.Push(EventAllConvosResult, AllConversationsResponse{Conversations: []domain.ConversationSummary{}})
		return
	}
	conversations, err := d.aggregates.AllConversations(ctx, req.UserID)
	if err != nil {
		d.logger.Error("all conversations failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		conversations = []domain.ConversationSummary{}
	}
	c.Push(EventAllConvosResult, AllConversationsResponse{Conversations: conversations})
}

func (d *Dispatcher) handleParticipants(ctx context.Context, c *Client, data json.RawMessage) {
	var req ParticipantsRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ConversationID == 0 {
		c.Push(EventParticipantsResult, ParticipantsResponse{Success: false, Error: "missing conversation id"})
		return
	}
	participants, err := d.conversations.Participants(ctx, req.ConversationID)
	if err != nil {
		c.Push(EventParticipantsResult, ParticipantsResponse{
			Success: false,
			Error:   failureMessage(err, "failed to load participants"),
		})
		return
	}
	c.Push(EventParticipantsResult, ParticipantsResponse{Success: true, Participants: participants})
}

func (d *Dispatcher) handleSearch(ctx context.Context, c *Client, data json.RawMessage) {
	var req SearchRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == 0 {
		c.Push(EventSearchResults, SearchResultsResponse{Success: false, Error: "invalid search parameters"})
		return
	}
	result, err := d.search.Search(ctx, req.UserID, req.SearchTerm)
	if err != nil {
		c.Push(EventSearchResults, SearchResultsResponse{
			Success: false,
			Error:   failureMessage(err, "failed to search users"),
		})
		return
	}
	c.Push(EventSearchResults, SearchResultsResponse{
		Success:       true,
		Conversations: result.Conversations,
		NewUsers:      result.NewUsers,
	})
}

// failureMessage expone los errores de negocio tal cual y esconde el
// detalle de los fallos de store detrás de un mensaje genérico.
func failureMessage(err error, generic string) string {
	for _, known := range []error{
		domain.ErrUserNotFound,
		domain.ErrSelfConversation,
		domain.ErrConversationNotFound,
		domain.ErrNotParticipant,
		domain.ErrEmptyContent,
		domain.ErrQueryTooShort,
		domain.ErrSearchRateLimited,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return generic
}
