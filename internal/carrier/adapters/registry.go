package adapters

import (
	"strings"

	"github.com/boxlane/boxlane/internal/carrier/domain"
)

type Registry struct {
	factories map[string]domain.Factory
}

func NewRegistry(factories ...domain.Factory) *Registry {
	registry := &Registry{factories: map[string]domain.Factory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(factory.Provider()))
		if provider == "" {
			continue
		}
		registry.factories[provider] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	_, ok := r.factories[provider]
	return ok
}

func (r *Registry) NewAdapter(provider string, cfg domain.AdapterConfig) (domain.Adapter, error) {
	if r == nil {
		return nil, domain.ErrAdapterNotFound
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	factory, ok := r.factories[provider]
	if !ok {
		return nil, domain.ErrAdapterNotFound
	}
	return factory.NewAdapter(cfg)
}
