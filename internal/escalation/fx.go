package escalation

import (
	"github.com/fieldops/penaltyd/internal/escalation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("escalation.service",
	fx.Provide(service.New),
)
