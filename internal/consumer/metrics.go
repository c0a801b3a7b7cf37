package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Traffic: циклы опроса и сообщения
	CyclesTotal       prometheus.Counter
	MessagesProcessed *prometheus.CounterVec

	// Errors: сбой самого Receive (очередь недоступна)
	ReceiveErrors prometheus.Counter

	// Latency: обработка одного сообщения (декодирование + корреляция + ack)
	ProcessingDuration prometheus.Histogram

	// Итог корреляции: письмо отправлено или подавлено как дубликат
	DraftsEmitted    prometheus.Counter
	DraftsSuppressed prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		CyclesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "callback_poll_cycles_total",
			Help: "Total number of queue poll cycles.",
		}),

		MessagesProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "callback_messages_total",
			Help: "Processed callback messages by outcome.",
		}, []string{"status"}), // статусы: ok, malformed, task_not_found, failed

		ReceiveErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "callback_receive_errors_total",
			Help: "Total number of failed queue receive calls.",
		}),

		ProcessingDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "callback_processing_duration_seconds",
			Help:    "Histogram of per-message processing latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		DraftsEmitted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "notification_drafts_emitted_total",
			Help: "Notification drafts handed to the delivery collaborator.",
		}),

		DraftsSuppressed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "notification_drafts_suppressed_total",
			Help: "Drafts suppressed on duplicate callback delivery.",
		}),
	}
}
