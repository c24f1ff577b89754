package api

import (
	"net/http"
	"time"

	"koubyte-be/internal/chat"
	"koubyte-be/internal/utils"
)

const guestTokenHeader = "X-Guest-Token"

type chatRequest struct {
	ConversationID uint   `json:"conversationId"`
	Message        string `json:"message"`
	Name           string `json:"name"`
	Email          string `json:"email"`
}

type conversationUpdate struct {
	Status *chat.Status `json:"status"`
	Read   bool         `json:"read"`
}

// participant identifies the caller. The display name is only looked up
// when a message is written.
func (h *Handler) participant(r *http.Request, withName bool) chat.Participant {
	p := chat.Participant{GuestToken: r.Header.Get(guestTokenHeader)}
	req, ok := utils.RequesterFromContext(r.Context())
	if !ok {
		return p
	}
	p.UserID = req.UserID
	p.Email = req.Email
	p.Admin = req.IsAdmin()
	if withName {
		if u, err := h.Users.Me(r.Context(), req.UserID); err == nil {
			p.Name = u.Name
		}
	}
	return p
}

func parseCursor(r *http.Request) (chat.Cursor, error) {
	var c chat.Cursor
	q := r.URL.Query()
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return c, utils.ErrInvalidBody
		}
		c.Since = t
	}
	if raw := q.Get("afterId"); raw != "" {
		id, err := utils.ToUint(raw)
		if err != nil {
			return c, errInvalidID
		}
		c.AfterID = id
	}
	return c, nil
}

// chatMessages polls one conversation with ?conversationId, or lists the
// caller's own conversations without it.
func (h *Handler) chatMessages(w http.ResponseWriter, r *http.Request) {
	p := h.participant(r, false)

	raw := r.URL.Query().Get("conversationId")
	if raw == "" {
		list, err := h.Chat.Mine(r.Context(), p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		utils.WriteJSON(w, http.StatusOK, list)
		return
	}

	id, err := utils.ToUint(raw)
	if err != nil || id == 0 {
		writeError(w, r, errInvalidID)
		return
	}
	cursor, err := parseCursor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msgs, err := h.Chat.Messages(r.Context(), id, p, cursor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, msgs)
}

// chatPost starts a conversation when no conversationId is given.
func (h *Handler) chatPost(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := h.participant(r, true)

	if req.ConversationID == 0 {
		started, err := h.Chat.Start(r.Context(), p, chat.StartInput{
			Name:    req.Name,
			Email:   req.Email,
			Message: req.Message,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		utils.WriteJSON(w, http.StatusCreated, started)
		return
	}

	m, err := h.Chat.Send(r.Context(), req.ConversationID, p, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Chat.ListConversations(r.Context(), chat.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) updateConversation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req conversationUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status != nil {
		if err := h.Chat.SetStatus(r.Context(), id, *req.Status); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Read {
		if err := h.Chat.MarkRead(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
	}
	utils.WriteMessage(w, http.StatusOK, "conversation updated")
}
