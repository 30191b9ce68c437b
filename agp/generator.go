package agp

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/data"
)

var Module = fx.Provide(
	fx.Annotate(NewChartRenderer, fx.As(new(Renderer))),
	NewGenerator,
)

// Generator runs an independent pipeline for every request
type Generator struct {
	client   data.Client
	renderer Renderer
	logger   *zap.SugaredLogger
}

func NewGenerator(client data.Client, renderer Renderer, logger *zap.SugaredLogger) *Generator {
	return &Generator{
		client:   client,
		renderer: renderer,
		logger:   logger,
	}
}

func (g *Generator) NewPipeline() (*Pipeline, error) {
	return NewPipeline(g.client, g.renderer, g.logger)
}

func (g *Generator) Generate(ctx context.Context, request Request) (*Report, error) {
	pipeline, err := g.NewPipeline()
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, request)
}
