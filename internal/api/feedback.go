package api

import (
	"net/http"

	"koubyte-be/internal/contact"
	"koubyte-be/internal/review"
	"koubyte-be/internal/utils"
)

type approveRequest struct {
	Approved bool `json:"approved"`
}

type readRequest struct {
	Read bool `json:"read"`
}

func (h *Handler) publicReviews(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reviews.Public(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	var input review.CreateInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	rv, err := h.Reviews.Create(r.Context(), requester(r).UserID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, rv)
}

func (h *Handler) adminListReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reviews.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) adminModerateReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req approveRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Reviews.SetApproved(r.Context(), id, req.Approved); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "review updated")
}

func (h *Handler) adminDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Reviews.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "review deleted")
}

func (h *Handler) createContact(w http.ResponseWriter, r *http.Request) {
	var input contact.CreateInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Contact.Create(r.Context(), input); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusCreated, "message sent")
}

func (h *Handler) adminListMessages(w http.ResponseWriter, r *http.Request) {
	list, err := h.Contact.List(r.Context(), r.URL.Query().Get("unread") == "true")
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) adminMarkMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req readRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Contact.SetRead(r.Context(), id, req.Read); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "message updated")
}

func (h *Handler) adminDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Contact.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "message deleted")
}
