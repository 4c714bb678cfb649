package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mp4_creator_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mp4_creator_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mp4_creator_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Merge pipeline metrics
var (
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mp4_creator_merges_total",
			Help: "Total number of merge requests by outcome",
		},
		[]string{"outcome"},
	)

	MergesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mp4_creator_merges_in_progress",
			Help: "Number of merge pipelines currently running",
		},
	)

	MergeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mp4_creator_merge_duration_seconds",
			Help:    "End-to-end merge pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
	)

	MergeInputs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mp4_creator_merge_inputs",
			Help:    "Number of resolved inputs per merge",
			Buckets: []float64{2, 3, 4, 5, 8, 10, 15, 20},
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mp4_creator_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"}, // "receive", "normalize", "concatenate", "deliver"
	)
)

// Engine metrics
var (
	EngineInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mp4_creator_engine_invocations_total",
			Help: "Total number of ffmpeg invocations",
		},
		[]string{"mode", "status"},
	)

	EngineInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mp4_creator_engine_invocation_duration_seconds",
			Help:    "Duration of ffmpeg invocations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	EngineProcessesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mp4_creator_engine_processes_running",
			Help: "Number of ffmpeg processes currently running",
		},
	)

	EngineAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mp4_creator_engine_available",
			Help: "Whether ffmpeg was found at startup (1 = available, 0 = missing)",
		},
	)
)

// Workspace metrics
var (
	WorkspacesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mp4_creator_workspaces_active",
			Help: "Number of workspaces created and not yet cleaned up",
		},
	)

	WorkspacesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mp4_creator_workspaces_created_total",
			Help: "Total number of workspaces created",
		},
	)

	WorkspaceCleanupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mp4_creator_workspace_cleanups_total",
			Help: "Total number of workspace cleanup requests by result",
		},
		[]string{"result"}, // "removed", "duplicate", "error"
	)

	OrphansSweptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mp4_creator_orphans_swept_total",
			Help: "Total number of orphaned workspaces handled by the startup sweep",
		},
		[]string{"result"}, // "removed", "skipped", "error"
	)

	FilesystemRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mp4_creator_filesystem_retries_total",
			Help: "Filesystem operations retried after a transient error",
		},
		[]string{"operation", "result"}, // "remove"/"open"; "attempt", "success", "failure"
	)
)

// Delivery metrics
var (
	DeliveredBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mp4_creator_delivered_bytes_total",
			Help: "Total number of merged-file bytes written to clients",
		},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mp4_creator_deliveries_total",
			Help: "Total number of deliveries by termination signal",
		},
		[]string{"outcome"}, // "complete", "client_gone", "read_error", "write_timeout"
	)
)

// Upload metrics
var (
	UploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mp4_creator_uploaded_bytes_total",
			Help: "Total number of uploaded bytes stored in workspaces",
		},
	)

	UploadRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mp4_creator_upload_rejections_total",
			Help: "Total number of rejected uploads by reason",
		},
		[]string{"reason"},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mp4_creator_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// SetEngineAvailable records the result of the startup engine probe.
func SetEngineAvailable(available bool) {
	if available {
		EngineAvailable.Set(1)
		return
	}
	EngineAvailable.Set(0)
}
