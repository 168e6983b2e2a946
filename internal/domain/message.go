package domain

import "time"

// Message es inmutable salvo por el flag de lectura, que
// mark_messages_read voltea en bloque. sent_at lo asigna el servidor.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	SenderPhoto    string    `json:"sender_photo,omitempty"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
	Read           bool      `json:"is_read"`
}
