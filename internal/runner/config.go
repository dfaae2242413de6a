package runner

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/coreyt/sine/internal/scanner"
	"github.com/coreyt/sine/internal/semgrep"
	"github.com/coreyt/sine/pkg/shared/config"
)

// NewFromConfig creates a Runner whose executor is configured from the engine section of cfg.
func NewFromConfig(cfg *config.Config, logger hclog.Logger, opts Options) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	executor := scanner.New(cfg.Engine.Binary, cfg.Engine.ExtraArgs, logger.Named("semgrep"))
	return New(semgrep.NewCompiler(nil), executor, logger, opts)
}

// WithEngineTimeout bounds ctx by engine.timeout. A zero timeout leaves ctx unbounded.
// A nil ctx is taken as context.Background.
func WithEngineTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil || cfg.Engine.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Engine.Timeout)
}
