package domain

import "time"

// Conversation agrupa exactamente dos participantes. Para cada par de
// usuarios existe a lo sumo una conversación (pair_key único en el store).
type Conversation struct {
	ID        int64     `json:"conversation_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationInfo es la respuesta de get_conversation: la conversación
// resuelta más la identidad del interlocutor.
type ConversationInfo struct {
	ConversationID    int64  `json:"conversation_id"`
	RecipientUsername string `json:"recipient_username"`
	RecipientPhoto    string `json:"recipient_photo,omitempty"`
}

// ConversationSummary es una entrada de getAllConversations: el preview
// usa el último mensaje de la conversación completa.
type ConversationSummary struct {
	ConversationID int64     `json:"conversation_id"`
	UpdatedAt      time.Time `json:"updated_at"`
	UnreadCount    int       `json:"unread_count"`
	LastMessage    string    `json:"last_message"`
	OtherUserID    int64     `json:"other_user_id"`
	OtherUsername  string    `json:"other_username"`
	OtherEmail     string    `json:"other_email,omitempty"`
	OtherPhoto     string    `json:"other_photo,omitempty"`
}

// UnreadConversation es una entrada de getUnreadConversations: el preview
// usa el último mensaje *no leído* enviado por el interlocutor, que no es
// necesariamente el último mensaje de la conversación.
type UnreadConversation struct {
	ConversationID     int64  `json:"conversation_id"`
	UnreadCount        int    `json:"unread_count"`
	LastSenderID       int64  `json:"last_sender_id"`
	LastMessage        string `json:"last_message"`
	LastSenderUsername string `json:"last_sender_username"`
	LastSenderPhoto    string `json:"last_sender_photo,omitempty"`
}

// SearchResult agrupa los dos listados disjuntos de search_users.
type SearchResult struct {
	Conversations []ConversationSummary `json:"conversations"`
	NewUsers      []User                `json:"newUsers"`
}
