package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"satya-chat/internal/domain"
)

// Nombres de evento, cliente -> servidor.
const (
	EventRegisterUser    = "register_user"
	EventAuthenticate    = "authenticate"
	EventGetConversation = "get_conversation"
	EventGetMessages     = "get_messages"
	EventSendMessage     = "send_message"
	EventTyping          = "typing"
	EventMarkRead        = "mark_messages_read"
	EventUnreadCount     = "getUnreadCount"
	EventUnreadConvos    = "getUnreadConversations"
	EventAllConvos       = "getAllConversations"
	EventParticipants    = "getConversationParticipants"
	EventSearchUsers     = "search_users"
)

// Nombres de evento, servidor -> cliente.
const (
	EventConversationCreated = "conversation_created"
	EventMessagesLoaded      = "messages_loaded"
	EventMessageSent         = "message_sent"
	EventReceiveMessage      = "receive_message"
	EventUserTyping          = "user_typing"
	EventMessagesMarkedRead  = "messages_marked_read"
	EventUnreadCountResult   = "unreadCount"
	EventUnreadConvosResult  = "unreadConversations"
	EventAllConvosResult     = "allConversations"
	EventParticipantsResult  = "conversationParticipants"
	EventSearchResults       = "search_results"
)

// Envelope es el marco de todo mensaje en ambas direcciones.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

var errMalformedPayload = errors.New("malformed payload")

// RegisterRequest acepta tanto {"user_id": 7, "token": "..."} como el id
// a pelo (7 o "7"), que es lo que emite el cliente original.
type RegisterRequest struct {
	UserID int64  `json:"user_id"`
	Token  string `json:"token,omitempty"`
}

func (r *RegisterRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type alias RegisterRequest
		var a alias
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*r = RegisterRequest(a)
		return nil
	}
	id, err := parseBareID(data)
	if err != nil {
		return err
	}
	r.UserID = id
	return nil
}

// UserIDRequest cubre los eventos que mandan solo el id del usuario,
// a pelo o como objeto (getUnreadCount, getUnreadConversations,
// getAllConversations).
type UserIDRequest struct {
	UserID int64 `json:"user_id"`
}

func (r *UserIDRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type alias UserIDRequest
		var a alias
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*r = UserIDRequest(a)
		return nil
	}
	id, err := parseBareID(data)
	if err != nil {
		return err
	}
	r.UserID = id
	return nil
}

func parseBareID(data []byte) (int64, error) {
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		return num.Int64()
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return 0, errMalformedPayload
	}
	return strconv.ParseInt(str, 10, 64)
}

type GetConversationRequest struct {
	CurrentUserID int64 `json:"current_user_id"`
	RecipientID   int64 `json:"recipient_id"`
}

type GetMessagesRequest struct {
	ConversationID int64 `json:"conversation_id"`
}

type SendMessageRequest struct {
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	Content        string `json:"content"`
}

type TypingRequest struct {
	ConversationID int64 `json:"conversation_id"`
	UserID         int64 `json:"user_id"`
	IsTyping       bool  `json:"is_typing"`
}

type MarkReadRequest struct {
	ConversationID int64 `json:"conversation_id"`
	UserID         int64 `json:"user_id"`
}

type ParticipantsRequest struct {
	ConversationID int64 `json:"conversation_id"`
}

type SearchRequest struct {
	UserID     int64  `json:"user_id"`
	SearchTerm string `json:"search_term"`
}

type ConversationCreatedResponse struct {
	Success           bool   `json:"success"`
	ConversationID    int64  `json:"conversation_id,omitempty"`
	RecipientUsername string `json:"recipient_username,omitempty"`
	RecipientPhoto    string `json:"recipient_photo,omitempty"`
	Error             string `json:"error,omitempty"`
}

type MessagesLoadedResponse struct {
	Success        bool             `json:"success"`
	ConversationID int64            `json:"conversation_id,omitempty"`
	Messages       []domain.Message `json:"messages,omitempty"`
	Error          string           `json:"error,omitempty"`
}

type MessageSentResponse struct {
	Success bool            `json:"success"`
	Message *domain.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type MarkedReadResponse struct {
	Success        bool   `json:"success"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

type UnreadConversationsResponse struct {
	Conversations []domain.UnreadConversation `json:"conversations"`
}

type AllConversationsResponse struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
}

type ParticipantsResponse struct {
	Success      bool    `json:"success"`
	Participants []int64 `json:"participants,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type SearchResultsResponse struct {
	Success       bool                         `json:"success"`
	Conversations []domain.ConversationSummary `json:"conversations,omitempty"`
	NewUsers      []domain.User                `json:"newUsers,omitempty"`
	Error         string                       `json:"error,omitempty"`
}
