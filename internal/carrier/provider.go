package carrier

import (
	"sync"

	"github.com/boxlane/boxlane/internal/carrier/adapters"
	"github.com/boxlane/boxlane/internal/carrier/domain"
	"github.com/boxlane/boxlane/internal/config"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"go.uber.org/zap"
)

// Provider resolves a live adapter for a carrier name from the hot-reloadable
// carrier config. Adapters are cached per carrier and rebuilt when the
// underlying config entry changes, so rate limiters survive across calls.
type Provider struct {
	registry *adapters.Registry
	holder   *config.CarrierConfigHolder
	log      *zap.Logger

	mu    sync.Mutex
	cache map[string]cachedAdapter
}

type cachedAdapter struct {
	cfg     config.CarrierConfig
	adapter domain.Adapter
}

func NewProvider(registry *adapters.Registry, holder *config.CarrierConfigHolder, log *zap.Logger) *Provider {
	return &Provider{
		registry: registry,
		holder:   holder,
		log:      log,
		cache:    map[string]cachedAdapter{},
	}
}

// AdapterFor returns the live adapter configured for the carrier, or false
// when the carrier has no enabled adapter entry.
func (p *Provider) AdapterFor(carrierName string) (domain.Adapter, bool) {
	normalized := scheduledomain.NormalizeCarrierName(carrierName)
	cfg, ok := p.holder.Get().Find(normalized)
	if !ok || !cfg.Enabled {
		return nil, false
	}
	if !p.registry.ProviderExists(cfg.Adapter) {
		p.log.Warn("carrier config names an unknown adapter",
			zap.String("carrier", normalized),
			zap.String("adapter", cfg.Adapter),
		)
		return nil, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.cache[normalized]; ok && cached.cfg == cfg {
		return cached.adapter, true
	}

	adapter, err := p.registry.NewAdapter(cfg.Adapter, domain.AdapterConfig{
		CarrierName:  normalized,
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		RateLimitRPS: cfg.RateLimitRPS,
		Timeout:      cfg.Timeout,
	})
	if err != nil {
		p.log.Warn("building carrier adapter failed",
			zap.String("carrier", normalized),
			zap.String("adapter", cfg.Adapter),
			zap.Error(err),
		)
		return nil, false
	}

	p.cache[normalized] = cachedAdapter{cfg: cfg, adapter: adapter}
	return adapter, true
}
