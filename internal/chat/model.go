package chat

import "time"

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

type Sender string

const (
	SenderUser  Sender = "user"
	SenderGuest Sender = "guest"
	SenderAdmin Sender = "admin"
)

type Conversation struct {
	ID            uint      `json:"id"`
	UserID        *uint     `json:"userId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	GuestToken    *string   `json:"-"`
	Status        Status    `json:"status"`
	UnreadAdmin   int       `json:"unreadAdmin"`
	LastMessage   string    `json:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Message struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	SenderName     string    `json:"senderName"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Participant is whoever is talking: a signed in user, an admin, or a guest
// holding the token handed out when the conversation started.
type Participant struct {
	UserID     uint
	Name       string
	Email      string
	Admin      bool
	GuestToken string
}

func (p Participant) sender() Sender {
	switch {
	case p.Admin:
		return SenderAdmin
	case p.UserID != 0:
		return SenderUser
	default:
		return SenderGuest
	}
}

type StartInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Started is returned once; the guest token is never shown again.
type Started struct {
	Conversation *Conversation `json:"conversation"`
	Message      *Message      `json:"message,omitempty"`
	GuestToken   string        `json:"guestToken,omitempty"`
}

// Cursor selects messages after AfterID. Since is only consulted when the
// client has no message id yet. Ids follow insert order, so a message that
// commits late is still picked up by the next poll.
type Cursor struct {
	Since   time.Time
	AfterID uint
}

func (c Cursor) IsZero() bool {
	return c.AfterID == 0 && c.Since.IsZero()
}
