package api

import (
	"net/http"

	"koubyte-be/internal/user"
	"koubyte-be/internal/utils"
)

type adminUserUpdate struct {
	ID uint `json:"id"`
	user.UpdateInput
}

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.Users.List(r.Context(), user.ListFilter{
		Search: q.Get("search"),
		Role:   q.Get("role"),
		Limit:  utils.QueryInt(r, "limit", 0),
		Page:   utils.QueryInt(r, "page", 1),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req adminUserUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ID == 0 {
		writeError(w, r, errInvalidID)
		return
	}
	u, err := h.Users.Update(r.Context(), requester(r).UserID, req.ID, req.UpdateInput)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.Delete(r.Context(), requester(r).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "user deleted")
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) adminMetrics(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.Metrics.Snapshot())
}
