package api

import (
	"net/http"

	"koubyte-be/internal/cart"
	"koubyte-be/internal/utils"
)

type addToCartRequest struct {
	ServiceID uint `json:"serviceId"`
	Quantity  int  `json:"quantity"`
}

type updateCartRequest struct {
	ID       uint `json:"id"`
	Quantity int  `json:"quantity"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.Cart.GetCart(r.Context(), requester(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c, err := h.Cart.AddToCart(r.Context(), cart.AddToCartParams{
		UserID:    requester(r).UserID,
		ServiceID: req.ServiceID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) updateCart(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Cart.UpdateQuantity(r.Context(), cart.UpdateQuantityParams{
		UserID:     requester(r).UserID,
		CartItemID: req.ID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, c)
}

// Without ?id the whole cart is cleared.
func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	userID := requester(r).UserID
	if r.URL.Query().Get("id") == "" {
		if err := h.Cart.ClearCart(r.Context(), userID); err != nil {
			writeError(w, r, err)
			return
		}
		utils.WriteMessage(w, http.StatusOK, "cart cleared")
		return
	}

	id, err := queryID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Cart.RemoveItem(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, c)
}
