package forgiveness

import (
	"github.com/fieldops/penaltyd/internal/forgiveness/service"
	"go.uber.org/fx"
)

var Module = fx.Module("forgiveness.service",
	fx.Provide(service.New),
)
