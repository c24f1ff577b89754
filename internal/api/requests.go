package api

import (
	"net/http"

	"koubyte-be/internal/appointment"
	"koubyte-be/internal/quote"
	"koubyte-be/internal/utils"
)

type statusRequest struct {
	Status string `json:"status"`
}

// requestQuote is open to guests; a signed in caller owns the quote.
func (h *Handler) requestQuote(w http.ResponseWriter, r *http.Request) {
	var input quote.RequestInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	var owner *utils.Requester
	if req, ok := utils.RequesterFromContext(r.Context()); ok {
		owner = &req
	}
	q, err := h.Quotes.Request(r.Context(), owner, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, q)
}

func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.Quotes.List(r.Context(), requester(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quotes)
}

func (h *Handler) updateQuote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var input quote.UpdateInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.Quotes.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, q)
}

func (h *Handler) appointmentSlots(w http.ResponseWriter, r *http.Request) {
	a, err := h.Appointments.Availability(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) listMyAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Appointments.ListMine(r.Context(), requester(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var input appointment.BookInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Appointments.Book(r.Context(), requester(r).UserID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Appointments.UpdateStatus(r.Context(), id, appointment.Status(req.Status), requester(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) adminListAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Appointments.ListAll(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}
