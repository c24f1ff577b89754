package api

import (
	"net/http"

	"koubyte-be/internal/discount"
	"koubyte-be/internal/utils"

	"github.com/shopspring/decimal"
)

type validateDiscountRequest struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type adminDiscountUpdate struct {
	ID uint `json:"id"`
	discount.UpdateInput
}

func (h *Handler) validateDiscount(w http.ResponseWriter, r *http.Request) {
	var req validateDiscountRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Discounts.Preview(r.Context(), req.Code, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) adminListDiscounts(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Discounts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, codes)
}

func (h *Handler) adminCreateDiscount(w http.ResponseWriter, r *http.Request) {
	var input discount.CreateInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Discounts.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handler) adminUpdateDiscount(w http.ResponseWriter, r *http.Request) {
	var req adminDiscountUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ID == 0 {
		writeError(w, r, errInvalidID)
		return
	}
	v, err := h.Discounts.Update(r.Context(), req.ID, req.UpdateInput)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) adminDeleteDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Discounts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "discount code deleted")
}
