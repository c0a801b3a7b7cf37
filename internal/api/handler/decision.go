package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/approvalflow-prototype/internal/finalize"
)

// DecisionService Описываем, что нам нужно от финализатора
type DecisionService interface {
	Finalize(ctx context.Context, taskID, decision, comments string) (finalize.Result, error)
}

type DecisionHandler struct {
	service DecisionService
}

func NewDecisionHandler(s DecisionService) *DecisionHandler {
	return &DecisionHandler{service: s}
}

type DecisionBody struct {
	Decision string `json:"decision"`
	Comments string `json:"comments"`
}

// Decide применяет решение по задаче. Поддерживаем оба способа вызова:
// GET по ссылке из письма (?decision=APPROVE) и POST с JSON-телом.
func (h *DecisionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")

	var req DecisionBody
	if r.Body != nil {
		// Тело опционально (ссылки из письма его не несут) — ошибки разбора глотаем
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Decision == "" {
		req.Decision = r.URL.Query().Get("decision")
	}
	if req.Comments == "" {
		req.Comments = r.URL.Query().Get("comments")
	}

	result, err := h.service.Finalize(r.Context(), taskID, req.Decision, req.Comments)
	if err != nil {
		// Детали остаются в логах финализатора; наружу — общий конверт ошибки
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
