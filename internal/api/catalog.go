package api

import (
	"net/http"

	"koubyte-be/internal/catalog"
	"koubyte-be/internal/utils"
)

// Admins see inactive services with ?all=true.
func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Catalog.List(r.Context(), catalog.ListFilter{
		Category:        q.Get("category"),
		PopularOnly:     q.Get("popular") == "true",
		IncludeInactive: q.Get("all") == "true" && requester(r).IsAdmin(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) serviceCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cats)
}

func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Catalog.Get(r.Context(), id, requester(r).IsAdmin())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	var input catalog.CreateInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Catalog.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) updateService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var input catalog.UpdateInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Catalog.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) deleteService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "service deleted")
}
