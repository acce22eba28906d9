// Package providers builds shims from provider configuration.
package providers

import (
	"github.com/ehealthMP/Omh-Schimmer/providers/fitbit"
	"github.com/ehealthMP/Omh-Schimmer/providers/withings"
	"github.com/ehealthMP/Omh-Schimmer/shim"
)

// TypeGeneric is a provider with no hooks, configured entirely from file.
const TypeGeneric = "generic"

// New returns the shim implementation selected by cfg.ProviderType().
// Unknown types fall back to a generic configured shim.
func New(cfg shim.ProviderConfig) (shim.Shim, error) {
	var (
		s   shim.Shim
		err error
	)
	switch cfg.ProviderType() {
	case withings.ShimKey:
		s, err = withings.New(cfg)
	case fitbit.ShimKey:
		s, err = fitbit.New(cfg)
	default:
		s, err = shim.NewConfiguredShim(cfg)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
