package chat

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrForbidden            = errors.New("not a participant of this conversation")
	ErrConversationClosed   = errors.New("conversation is closed")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrMessageTooLong       = errors.New("message is too long")
	ErrGuestDetails         = errors.New("name and a valid email are required")
	ErrInvalidStatus        = errors.New("invalid conversation status")
)
