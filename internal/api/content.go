package api

import (
	"net/http"

	"koubyte-be/internal/blog"
	"koubyte-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type markNotificationsRequest struct {
	ID uint `json:"id"`
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	inbox, err := h.Notifications.List(r.Context(), requester(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, inbox)
}

// markNotifications marks one notification read, or all of them without an id.
func (h *Handler) markNotifications(w http.ResponseWriter, r *http.Request) {
	var req markNotificationsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	userID := requester(r).UserID

	var err error
	if req.ID == 0 {
		err = h.Notifications.MarkAllRead(r.Context(), userID)
	} else {
		err = h.Notifications.MarkRead(r.Context(), userID, req.ID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "notifications updated")
}

// Admins list drafts too with ?all=true.
func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	var (
		posts []blog.Post
		err   error
	)
	if r.URL.Query().Get("all") == "true" && requester(r).IsAdmin() {
		posts, err = h.Blog.ListAll(r.Context())
	} else {
		posts, err = h.Blog.ListPublished(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, posts)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.Blog.Get(r.Context(), chi.URLParam(r, "idOrSlug"), requester(r).IsAdmin())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var input blog.CreateInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Blog.Create(r.Context(), requester(r).UserID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var input blog.UpdateInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Blog.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Blog.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "post deleted")
}
