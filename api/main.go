package api

import (
	"go.uber.org/fx"

	"github.com/tidepool-org/blip/agp"
	"github.com/tidepool-org/blip/auth"
	"github.com/tidepool-org/blip/authz"
	"github.com/tidepool-org/blip/clinics"
	"github.com/tidepool-org/blip/config"
	"github.com/tidepool-org/blip/data"
	"github.com/tidepool-org/blip/logger"
	"github.com/tidepool-org/blip/patients"
	"github.com/tidepool-org/blip/rpm"
	"github.com/tidepool-org/blip/store"
	"github.com/tidepool-org/blip/summary"
)

// Dependencies are shared by the server and the command line tools
func Dependencies() []fx.Option {
	return []fx.Option{
		fx.Provide(
			logger.NewProductionLogger,
			logger.Suggar,
			config.NewFromEnv,
			store.NewConfig,
			store.NewClient,
			store.NewDatabase,
		),
		auth.Module,
		data.Module,
		clinics.Module,
		patients.Module,
		summary.Module,
		agp.Module,
		rpm.Module,
	}
}

func MainLoop() {
	opts := append(Dependencies(),
		authz.Module,
		fx.Provide(
			NewHealthCheck,
			NewHandler,
			NewServer,
		),
		fx.Invoke(SetReady),
		fx.Invoke(Start),
	)
	fx.New(opts...).Run()
}
