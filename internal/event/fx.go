package event

import (
	"github.com/fieldops/penaltyd/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event.service",
	fx.Provide(service.New),
)
