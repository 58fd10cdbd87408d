package venue

import (
	"fmt"
	"sort"

	"github.com/rxtech-lab/argo-autotrade/internal/config"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
)

type ProviderType string

const (
	ProviderPaper        ProviderType = "paper"
	ProviderBridge       ProviderType = "bridge"
	ProviderBinancePaper ProviderType = "binance-paper"
	ProviderBinanceLive  ProviderType = "binance-live"
)

type ProviderInfo struct {
	Name           string `json:"name" yaml:"name"`
	DisplayName    string `json:"displayName" yaml:"display_name"`
	Description    string `json:"description" yaml:"description"`
	IsPaperTrading bool   `json:"isPaperTrading" yaml:"is_paper_trading"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderPaper: {
		Name:           string(ProviderPaper),
		DisplayName:    "Paper",
		Description:    "In-memory simulator, optionally seeded from a YAML file",
		IsPaperTrading: true,
	},
	ProviderBridge: {
		Name:           string(ProviderBridge),
		DisplayName:    "MetaTrader 5 Bridge",
		Description:    "MetaTrader 5 terminal reached through an HTTP sidecar",
		IsPaperTrading: false,
	},
	ProviderBinancePaper: {
		Name:           string(ProviderBinancePaper),
		DisplayName:    "Binance Testnet",
		Description:    "Binance spot testnet, no real funds",
		IsPaperTrading: true,
	},
	ProviderBinanceLive: {
		Name:           string(ProviderBinanceLive),
		DisplayName:    "Binance Live",
		Description:    "Binance spot with real funds",
		IsPaperTrading: false,
	},
}

// SupportedProviders returns the provider names in sorted order.
func SupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a provider name.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported venue provider: %s", providerName)
	}

	return info, nil
}

// New builds the venue selected by cfg.Provider.
func New(cfg config.VenueConfig, log *logger.Logger) (Venue, error) {
	switch ProviderType(cfg.Provider) {
	case ProviderPaper:
		paper := NewPaperVenue()
		if cfg.PaperSeed != "" {
			if err := paper.LoadSeedFile(cfg.PaperSeed); err != nil {
				return nil, err
			}
		}

		return paper, nil
	case ProviderBridge:
		return NewBridgeVenue(cfg.BridgeURL, cfg.Timeout, log), nil
	case ProviderBinancePaper, ProviderBinanceLive:
		binanceCfg := BinanceConfig{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			QuoteAsset: cfg.QuoteAsset,
		}
		if err := binanceCfg.Validate(); err != nil {
			return nil, err
		}

		return NewBinanceVenue(binanceCfg, ProviderType(cfg.Provider) == ProviderBinancePaper, log), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidProvider, fmt.Sprintf("unsupported venue provider: %s", cfg.Provider))
	}
}
