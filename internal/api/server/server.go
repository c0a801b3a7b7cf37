package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/approvalflow-prototype/internal/api/handler"
	"github.com/xela07ax/approvalflow-prototype/internal/infra"
	"go.uber.org/zap"
)

type APIServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Обработчики бизнес-доменов
	requestHandler  *handler.RequestHandler  // /create-request
	decisionHandler *handler.DecisionHandler // /requests/{taskId}/decision
}

// NewAPIServer инициализирует HTTP-поверхность со всеми зависимостями
func NewAPIServer(
	cfg *infra.Config,
	logger *zap.Logger,
	requestH *handler.RequestHandler,
	decisionH *handler.DecisionHandler,
) *APIServer {
	s := &APIServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("api"),
		cfg:             cfg,
		requestHandler:  requestH,
		decisionHandler: decisionH,
	}

	s.routes()
	return s
}

func (s *APIServer) routes() {
	r := s.router

	// --- Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Healthcheck для мониторинга
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Создание заявки на согласование
	r.Post("/create-request", s.requestHandler.Create)

	// Решение по задаче. GET нужен для ссылок из письма,
	// POST — для программных вызовов с телом.
	r.Route("/requests/{taskId}", func(r chi.Router) {
		r.Get("/decision", s.decisionHandler.Decide)
		r.Post("/decision", s.decisionHandler.Decide)
	})
}

// ServeHTTP позволяет использовать APIServer как стандартный http.Handler
func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
