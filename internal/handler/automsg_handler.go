package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crushline/automsg/internal/apperrors"
	"github.com/crushline/automsg/internal/service"
)

// AutoMessageHandler exposes rule authoring over HTTP.
type AutoMessageHandler struct {
	Service *service.AutoMessageService
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service errors onto status codes: validation
// failures are the caller's fault, missing rules are 404, the rest is 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var invalid *apperrors.ErrInvalidTrigger
	var notFound *apperrors.ErrAutoMessageNotFound
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &invalid), errors.As(err, &fieldErrs):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *AutoMessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.AutoMessageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.Service.Create(&in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (h *AutoMessageHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	creatorID, _ := strconv.Atoi(r.URL.Query().Get("creator_id"))
	activeOnly := r.URL.Query().Get("active") == "true"

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	rules, pagination, err := h.Service.List(page, pageSize, creatorID, activeOnly)
	if err != nil {
		http.Error(w, "failed to fetch automated messages: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       rules,
		"pagination": pagination,
	})
}

func (h *AutoMessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid automated message id", http.StatusBadRequest)
		return
	}

	details, err := h.Service.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *AutoMessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid automated message id", http.StatusBadRequest)
		return
	}

	var in service.AutoMessageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.Service.Update(id, &in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *AutoMessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid automated message id", http.StatusBadRequest)
		return
	}

	if err := h.Service.Delete(id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
