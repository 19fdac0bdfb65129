package evaluation

import (
	"github.com/fieldops/penaltyd/internal/evaluation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("evaluation.service",
	fx.Provide(service.New),
)
