package maersk

import (
	"github.com/boxlane/boxlane/internal/carrier/adapters/dcsa"
	"github.com/boxlane/boxlane/internal/carrier/domain"
)

const defaultBaseURL = "https://api.maersk.com/schedules"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "maersk"
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return dcsa.New(cfg,
		dcsa.WithAPIKeyHeader("Consumer-Key"),
		dcsa.WithSourceSystem("maersk-api"),
	)
}
