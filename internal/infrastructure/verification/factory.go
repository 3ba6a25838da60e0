package verification

import (
	"fmt"
	"sync"
	"time"

	domainerrors "pay-watch.backend/internal/domain/errors"
)

const (
	ModeHTTP = "http"
	ModeEVM  = "evm"
)

// FactoryConfig carries everything needed to build a verifier per chain.
type FactoryConfig struct {
	Mode       string
	VerifyURL  string            // http mode
	RPCURLs    map[string]string // evm mode: chain -> rpc url
	Currencies map[string]string // evm mode: chain -> native currency, default ETH
	Timeout    time.Duration
}

// Factory hands out one verifier per chain and caches it.
type Factory struct {
	cfg       FactoryConfig
	verifiers map[string]Verifier
	mu        sync.RWMutex
}

// NewFactory creates a new verifier factory
func NewFactory(cfg FactoryConfig) *Factory {
	return &Factory{
		cfg:       cfg,
		verifiers: make(map[string]Verifier),
	}
}

// ForChain returns the verifier for a chain, building it on first use.
// Unknown chains fail with ErrUnsupportedChain so callers can reject
// requests up front.
func (f *Factory) ForChain(chain string) (Verifier, error) {
	f.mu.RLock()
	v, ok := f.verifiers[chain]
	f.mu.RUnlock()
	if ok {
		return v, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if v, ok := f.verifiers[chain]; ok {
		return v, nil
	}

	built, err := f.build(chain)
	if err != nil {
		return nil, err
	}

	f.verifiers[chain] = built
	return built, nil
}

// Register injects/overrides the cached verifier for a chain.
// Useful for deterministic unit tests.
func (f *Factory) Register(chain string, v Verifier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifiers[chain] = v
}

// Supported reports whether a chain can be verified with this configuration.
func (f *Factory) Supported(chain string) bool {
	f.mu.RLock()
	if _, ok := f.verifiers[chain]; ok {
		f.mu.RUnlock()
		return true
	}
	f.mu.RUnlock()

	if f.cfg.Mode == ModeHTTP {
		return true
	}
	_, ok := f.cfg.RPCURLs[chain]
	return ok
}

func (f *Factory) build(chain string) (Verifier, error) {
	switch f.cfg.Mode {
	case ModeHTTP:
		if f.cfg.VerifyURL == "" {
			return nil, fmt.Errorf("verify url not configured")
		}
		return NewHTTPVerifier(f.cfg.VerifyURL, f.cfg.Timeout), nil

	case ModeEVM:
		rpcURL, ok := f.cfg.RPCURLs[chain]
		if !ok {
			return nil, domainerrors.ErrUnsupportedChain
		}
		currency := f.cfg.Currencies[chain]
		if currency == "" {
			currency = "ETH"
		}
		verifier, err := NewEVMVerifier(rpcURL, currency)
		if err != nil {
			return nil, fmt.Errorf("failed to create EVM verifier: %w", err)
		}
		return verifier, nil

	default:
		return nil, fmt.Errorf("unknown verifier mode %q", f.cfg.Mode)
	}
}
