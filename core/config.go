package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultProviderURL         = "https://identity.ic0.app"
	DefaultSnapshotSlot        = "wallet.session"
	DefaultFetchTimeout        = 10 * time.Second
	DefaultNotificationHistory = 64
)

type Config struct {
	ServiceName         string        `koanf:"service_name" mapstructure:"service_name"`
	ProviderURL         string        `koanf:"provider_url" mapstructure:"provider_url"`
	SnapshotSlot        string        `koanf:"snapshot_slot" mapstructure:"snapshot_slot"`
	FetchTimeout        time.Duration `koanf:"fetch_timeout" mapstructure:"fetch_timeout"`
	MintRecheckDelay    time.Duration `koanf:"mint_recheck_delay" mapstructure:"mint_recheck_delay"`
	NotificationHistory int           `koanf:"notification_history" mapstructure:"notification_history"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:         "wallet",
		ProviderURL:         DefaultProviderURL,
		SnapshotSlot:        DefaultSnapshotSlot,
		FetchTimeout:        DefaultFetchTimeout,
		NotificationHistory: DefaultNotificationHistory,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.ProviderURL) == "" {
		return fmt.Errorf("core: provider_url is required")
	}
	if strings.TrimSpace(c.SnapshotSlot) == "" {
		return fmt.Errorf("core: snapshot_slot is required")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("core: fetch_timeout must be > 0")
	}
	if c.MintRecheckDelay < 0 {
		return fmt.Errorf("core: mint_recheck_delay must be >= 0")
	}
	if c.NotificationHistory < 0 {
		return fmt.Errorf("core: notification_history must be >= 0")
	}
	return nil
}
