package mirror

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/did-method-prism/go-didprism/mirror")

var (
	RefreshQueueGauge    metric.Int64Gauge
	SnapshotCountGauge   metric.Int64Gauge
	LastRefreshTsGauge   metric.Int64Gauge
	RefreshErrorsCounter metric.Int64Counter
)

func init() {
	var err error
	RefreshQueueGauge, err = meter.Int64Gauge("prism_mirror_refresh_queue",
		metric.WithDescription("Number of DIDs waiting in the refresh channel"),
	)
	if err != nil {
		panic(err)
	}
	SnapshotCountGauge, err = meter.Int64Gauge("prism_mirror_snapshot_count",
		metric.WithDescription("Total number of stored document snapshots"),
	)
	if err != nil {
		panic(err)
	}
	LastRefreshTsGauge, err = meter.Int64Gauge("prism_mirror_last_refresh_ts",
		metric.WithDescription("Unix timestamp of the most recently refreshed snapshot"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(err)
	}
	RefreshErrorsCounter, err = meter.Int64Counter("prism_mirror_refresh_errors",
		metric.WithDescription("Number of failed snapshot refresh attempts"),
	)
	if err != nil {
		panic(err)
	}
}
