package metrics

// Label values exported from the first scrape.
var (
	MergeOutcomes    = []string{"success", "engine_unavailable", "validation", "payload_too_large", "transcode", "concatenation", "delivery", "canceled", "internal"}
	Stages           = []string{"receive", "normalize", "concatenate", "deliver"}
	EngineModes      = []string{"transcode", "concat", "probe"}
	CleanupResults   = []string{"removed", "duplicate", "error"}
	SweepResults     = []string{"removed", "skipped", "error"}
	DeliveryOutcomes = []string{"complete", "client_gone", "read_error", "write_timeout"}
	FilesystemOps    = []string{"remove", "open"}
	UploadReasons    = []string{"too_many_files", "file_too_large", "request_too_large", "unsupported_type", "malformed"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range MergeOutcomes {
		MergesTotal.WithLabelValues(outcome)
	}

	for _, stage := range Stages {
		StageDuration.WithLabelValues(stage)
	}

	for _, mode := range EngineModes {
		EngineInvocationsTotal.WithLabelValues(mode, "success")
		EngineInvocationsTotal.WithLabelValues(mode, "error")
		EngineInvocationDuration.WithLabelValues(mode)
	}

	for _, result := range CleanupResults {
		WorkspaceCleanupsTotal.WithLabelValues(result)
	}

	for _, result := range SweepResults {
		OrphansSweptTotal.WithLabelValues(result)
	}

	for _, outcome := range DeliveryOutcomes {
		DeliveriesTotal.WithLabelValues(outcome)
	}

	for _, op := range FilesystemOps {
		for _, result := range []string{"attempt", "success", "failure"} {
			FilesystemRetriesTotal.WithLabelValues(op, result)
		}
	}

	for _, reason := range UploadReasons {
		UploadRejectionsTotal.WithLabelValues(reason)
	}
}
