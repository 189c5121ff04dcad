package config

import "fmt"

// NegativeUNLConfig represents the [negative_unl] section: the
// measurement window and tuning knobs for N-UNL voting. Zero values
// mean "use the protocol default" (a 256-ledger window, matching
// rippled's FLAG_LEDGER interval).
type NegativeUNLConfig struct {
	// FlagLedgerInterval is F, the number of ledgers per voting epoch.
	// Must be a positive multiple large enough that LowWater/HighWater/
	// MinLocal are meaningfully distinct; 0 means "use the default".
	FlagLedgerInterval int `toml:"flag_ledger_interval" mapstructure:"flag_ledger_interval"`

	// Disabled turns off N-UNL voting entirely, leaving the ledger's
	// N-UNL fields present but never updated by this node.
	Disabled bool `toml:"disabled" mapstructure:"disabled"`
}

// Validate performs validation on the negative UNL configuration.
func (c *NegativeUNLConfig) Validate() error {
	if c.FlagLedgerInterval < 0 {
		return fmt.Errorf("flag_ledger_interval must be non-negative, got %d", c.FlagLedgerInterval)
	}
	if c.FlagLedgerInterval > 0 && c.FlagLedgerInterval < 8 {
		return fmt.Errorf("flag_ledger_interval must be at least 8, got %d", c.FlagLedgerInterval)
	}
	return nil
}

// GetFlagLedgerInterval returns the configured window, or 0 to
// indicate the caller should fall back to the protocol default.
func (c *NegativeUNLConfig) GetFlagLedgerInterval() int {
	return c.FlagLedgerInterval
}

// HasCustomFlagLedgerInterval returns true if a non-default window is set.
func (c *NegativeUNLConfig) HasCustomFlagLedgerInterval() bool {
	return c.FlagLedgerInterval > 0
}

// IsEmpty returns true if the section carries no overrides.
func (c *NegativeUNLConfig) IsEmpty() bool {
	return c.FlagLedgerInterval == 0 && !c.Disabled
}
