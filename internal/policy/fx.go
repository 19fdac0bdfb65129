package policy

import (
	"github.com/fieldops/penaltyd/internal/policy/service"
	"go.uber.org/fx"
)

var Module = fx.Module("policy.service",
	fx.Provide(service.New),
)
