package handlers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mp4-creator/internal/logging"
)

// scrapeLogger routes collector errors into the application log.
type scrapeLogger struct{}

func (scrapeLogger) Println(v ...interface{}) {
	logging.Warn("metrics scrape: %s", fmt.Sprint(v...))
}

// MetricsHandler serves the default registry. Collector errors are logged and
// the remaining metrics are still returned.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:          scrapeLogger{},
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}
