package observability

import (
	"github.com/angedjimenou/investapp/internal/observability/logger"
	"github.com/angedjimenou/investapp/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	logger.Module,
	fx.Provide(metrics.NewHTTPMetrics),
)
