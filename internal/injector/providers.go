package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/citrus/internal/config"
	"github.com/zeusync/citrus/internal/core/ecs"
	"github.com/zeusync/citrus/internal/core/events/bus"
	"github.com/zeusync/citrus/internal/core/observability/log"
	"github.com/zeusync/citrus/internal/core/scene"
)

// Runtime is everything a host needs to run and persist a scene.
type Runtime struct {
	Config     *config.Config
	Logger     log.Log
	Bus        bus.EventBus
	Manager    *ecs.Manager
	Registry   *scene.Registry
	Serializer *scene.Serializer
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideManager,
	scene.NewRegistry,
	ProvideSerializer,
	wire.Struct(new(Runtime), "*"),
)

func ProvideLogger(cfg *config.Config) (log.Log, func(), error) {
	logger, err := log.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

func ProvideManager(cfg *config.Config, logger log.Log, b bus.EventBus) (*ecs.Manager, error) {
	policy, err := cfg.Manager.Policy()
	if err != nil {
		return nil, err
	}
	return ecs.NewManager(
		ecs.WithLogger(logger.Named("ecs")),
		ecs.WithBus(b),
		ecs.WithResolvePolicy(policy),
	), nil
}

func ProvideSerializer(cfg *config.Config, reg *scene.Registry, logger log.Log) *scene.Serializer {
	return scene.NewSerializer(reg,
		scene.WithLogger(logger.Named("scene")),
		scene.WithIndent(cfg.Scene.Indent),
	)
}
