package hapag

import (
	"github.com/boxlane/boxlane/internal/carrier/adapters/dcsa"
	"github.com/boxlane/boxlane/internal/carrier/domain"
)

const defaultBaseURL = "https://api.hlag.com/hlag/external/v2"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "hapag"
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return dcsa.New(cfg,
		dcsa.WithAPIKeyHeader("X-API-Key"),
		dcsa.WithSourceSystem("hapag-api"),
	)
}
