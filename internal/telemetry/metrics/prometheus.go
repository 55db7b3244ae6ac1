package metrics

import (
	"github.com/IBM/pgxpoolprometheus"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type PrometheusParams struct {
	DBPool       *pgxpool.Pool
	DBName       string
	SessionStore string
}

// SetupPrometheus builds the registry served on the metrics listener.
// The pool collector is skipped when no pool is given.
func SetupPrometheus(params PrometheusParams) *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()

	// Add Go module build info, runtime metrics and process collectors.
	promRegistry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if params.DBPool != nil {
		promRegistry.MustRegister(pgxpoolprometheus.NewCollector(
			params.DBPool,
			map[string]string{"db_name": params.DBName},
		))
	}

	gaugeInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "logingate",
		Name:        "info",
		Help:        "Always 1, labeled with the session store in use",
		ConstLabels: prometheus.Labels{"session_store": params.SessionStore},
	})
	gaugeInfo.Set(1)
	promRegistry.MustRegister(gaugeInfo)

	return promRegistry
}
