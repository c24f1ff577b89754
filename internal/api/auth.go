package api

import (
	"net/http"

	"koubyte-be/internal/auth"
	"koubyte-be/internal/user"
	"koubyte-be/internal/utils"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) startSession(w http.ResponseWriter, code int, res *user.AuthResult) {
	auth.SetTokenCookie(w, res.Token, res.ExpiresAt, h.SecureCookies)
	utils.WriteJSON(w, code, map[string]any{
		"message":   "ok",
		"user":      res.User,
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var input user.RegisterInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Users.Register(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w, h.SecureCookies)
	utils.WriteMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Me(r.Context(), requester(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, u)
}
