// Package metrics registra las métricas Prometheus del servicio (prefijo trz_).
// Se exponen en GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchOperations lotes procesados por operación y resultado (ok, conflict, invalid, error, replay).
	BatchOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trz_batch_operations_total",
		Help: "Operaciones por lote sobre equipos",
	}, []string{"operation", "result"})

	// ItemsMoved equipos que cambiaron de estado.
	ItemsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trz_items_moved_total",
		Help: "Equipos que cambiaron de estado por operación",
	}, []string{"operation"})

	// BatchDuration duración de la parte transaccional del lote.
	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trz_batch_duration_seconds",
		Help:    "Duración de la transacción de un lote",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// DocumentsIssued actas emitidas por tipo.
	DocumentsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trz_documents_issued_total",
		Help: "Actas emitidas por tipo",
	}, []string{"kind"})

	// ImportRows filas de cargue masivo por resultado (inserted, rejected).
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trz_import_rows_total",
		Help: "Filas procesadas en cargues masivos",
	}, []string{"mode", "result"})

	// FollowUpTasks ejecuciones de tareas posteriores (done, retry, dead).
	FollowUpTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trz_followup_tasks_total",
		Help: "Ejecuciones de tareas de render y correo",
	}, []string{"kind", "result"})

	// CacheLookups aciertos y fallos de la caché de directorio.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trz_directory_cache_lookups_total",
		Help: "Consultas a la caché de nombres y correos",
	}, []string{"cache", "result"})

	// HTTPRequests solicitudes HTTP por ruta normalizada.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trz_http_requests_total",
		Help: "Solicitudes HTTP",
	}, []string{"method", "path", "status"})

	// HTTPDuration duración de solicitudes HTTP.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trz_http_request_duration_seconds",
		Help:    "Duración de solicitudes HTTP en segundos",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
