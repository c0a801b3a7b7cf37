package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xela07ax/approvalflow-prototype/internal/api/service"
)

// RequestService Описываем, что нам нужно от сервиса
type RequestService interface {
	CreateRequest(ctx context.Context, title, content, assessorEmail string) (*service.CreateResult, error)
}

type RequestHandler struct {
	service RequestService
}

func NewRequestHandler(s RequestService) *RequestHandler {
	return &RequestHandler{service: s}
}

type CreateRequestBody struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	AssessorEmail string `json:"assessorEmail"`
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Валидация на границе: ядро получает уже проверенные поля
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.AssessorEmail) == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "title and assessorEmail are required"})
		return
	}

	result, err := h.service.CreateRequest(r.Context(), req.Title, req.Content, req.AssessorEmail)
	if err != nil {
		http.Error(w, "failed to create request", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
