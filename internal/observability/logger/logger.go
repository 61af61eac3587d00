package logger

import (
	"github.com/angedjimenou/investapp/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// New builds the application logger: structured JSON in production, the
// console encoder everywhere else. The result also replaces the zap global
// so packages without an injected logger still emit structured output.
func New(cfg config.Config) (*zap.Logger, error) {
	var log *zap.Logger
	var err error
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

var Module = fx.Module("logger",
	fx.Provide(New),
)
