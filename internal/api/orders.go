package api

import (
	"net/http"

	"koubyte-be/internal/order"
	"koubyte-be/internal/utils"
)

const idempotencyHeader = "Idempotency-Key"

type adminOrderUpdate struct {
	ID uint `json:"id"`
	order.AdminUpdate
}

// checkout answers 201 for a new order and 200 for a replayed key.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var input order.CheckoutInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	input.IdempotencyKey = r.Header.Get(idempotencyHeader)

	res, err := h.Orders.Checkout(r.Context(), requester(r).UserID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}
	utils.WriteJSON(w, code, res)
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListMine(r.Context(), requester(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Get(r.Context(), id, requester(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.Orders.ListAll(r.Context(), order.ListFilter{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("paymentStatus"),
		Search:        q.Get("search"),
		Limit:         utils.QueryInt(r, "limit", 0),
		Page:          utils.QueryInt(r, "page", 1),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) adminUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req adminOrderUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ID == 0 {
		writeError(w, r, errInvalidID)
		return
	}
	o, err := h.Orders.AdminUpdate(r.Context(), req.ID, req.AdminUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) adminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Orders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "order deleted")
}
