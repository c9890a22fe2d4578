package processor

import (
	"fmt"
	"strings"

	"github.com/fieldview/arbiter/internal/config"
	processordomain "github.com/fieldview/arbiter/internal/processor/domain"
	"github.com/fieldview/arbiter/internal/processor/stripe"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewGateway selects the processor adapter from configuration.
func NewGateway(cfg config.Config, log *zap.Logger) (processordomain.Gateway, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Processor.Provider))
	switch provider {
	case "", "stripe":
		return stripe.New(stripe.Config{
			APIKey:  cfg.Processor.APIKey,
			BaseURL: cfg.Processor.BaseURL,
			Timeout: cfg.Processor.Timeout,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown processor provider %q", provider)
	}
}

var Module = fx.Module("processor",
	fx.Provide(NewGateway),
)
