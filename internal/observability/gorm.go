package observability

import (
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/chatproxy/internal/config"
)

// InstrumentGORM registers the OpenTelemetry tracing plugin on db so every
// query becomes a child span of the calling request. Metrics are left to the
// Prometheus middleware.
func InstrumentGORM(db *gorm.DB, cfg config.OTELConfig) error {
	if !cfg.Enabled {
		return nil
	}
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}
