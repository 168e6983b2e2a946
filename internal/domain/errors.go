package domain

import "errors"

// Errores de negocio. Todos se recuperan en el borde del handler y se
// convierten en una respuesta {success:false, error}; ninguno tumba la
// conexión. Ninguno se reintenta automáticamente.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSelfConversation     = errors.New("cannot create a conversation with yourself")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("sender is not a participant of this conversation")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrQueryTooShort        = errors.New("search term must be at least 3 characters")
	ErrSearchRateLimited    = errors.New("too many search requests")
)
