package api

import (
	"net/http"

	"koubyte-be/internal/logger"
	"koubyte-be/internal/payment"
	"koubyte-be/internal/utils"

	"go.uber.org/zap"
)

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Payments.CreatePayment(r.Context(), req, requester(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]any{
		"payment":     p,
		"redirectUrl": utils.PtrString(p.RedirectURL),
	})
}

// paymentReturn is where the provider sends the browser back. The status is
// re-read from the provider before redirecting to the frontend.
func (h *Handler) paymentReturn(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ToUint(r.URL.Query().Get("payment"))
	if err != nil || id == 0 {
		writeError(w, r, errInvalidID)
		return
	}
	p, err := h.Payments.Sync(r.Context(), id)
	if err != nil {
		logger.Scoped(r.Context(), "api", "paymentReturn", zap.Uint("payment_id", id)).
			Warn("payment return for unknown attempt", zap.Error(err))
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, h.Payments.ReturnRedirect(p), http.StatusSeeOther)
}

func (h *Handler) adminListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.Payments.List(r.Context(), payment.ListFilter{
		Status:   q.Get("status"),
		Provider: q.Get("provider"),
		Limit:    utils.QueryInt(r, "limit", 0),
		Page:     utils.QueryInt(r, "page", 1),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) adminRefund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Payments.Refund(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}
