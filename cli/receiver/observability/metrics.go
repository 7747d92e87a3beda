package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Connections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receiver_tcp_connections_total",
		Help: "Принятые TCP соединения",
	})
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "receiver_tcp_connections_active",
		Help: "Открытые TCP соединения",
	})
	Frames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receiver_frames_total",
		Help: "Извлечённые кадры",
	})
	GarbageBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receiver_garbage_bytes_total",
		Help: "Байты, отброшенные до маркера начала кадра",
	})
	OversizedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receiver_oversized_frames_total",
		Help: "Соединения, закрытые из-за переполнения буфера кадра",
	})
	Dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receiver_messages_dropped_total",
		Help: "Отброшенные сообщения по причинам",
	}, []string{"reason"})
	Persisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receiver_records_enqueued_total",
		Help: "Записи, поставленные в очередь на сохранение",
	})
	QueueOverflow = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receiver_queue_overflow_total",
		Help: "Записи, вытесненные из переполненной очереди",
	})
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receiver_store_errors_total",
		Help: "Ошибки записи в хранилища",
	}, []string{"store"})
)
