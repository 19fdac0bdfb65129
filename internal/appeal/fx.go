package appeal

import (
	"github.com/fieldops/penaltyd/internal/appeal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("appeal.service",
	fx.Provide(service.New),
)
