package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/chatproxy/internal/config"
)

// New builds the Streamer selected by cfg.Provider, wrapped with metrics.
func New(ctx context.Context, cfg config.ModelConfig) (Streamer, error) {
	var (
		s   Streamer
		err error
	)
	switch cfg.Provider {
	case config.ProviderGoogle:
		s, err = NewGoogle(ctx, cfg.GoogleAPIKey, cfg.DefaultModel)
	case config.ProviderOpenAI:
		s, err = NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.DefaultModel)
	case config.ProviderFake:
		log.Warn().Msg("MODEL_PROVIDER=fake, replies are echoed locally")
		s = Echo{}
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &Instrumented{Provider: cfg.Provider, Next: s}, nil
}
