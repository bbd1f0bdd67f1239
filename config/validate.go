package config

import (
	"fmt"
	"math/big"
	"strings"

	"unitfarm/native/common"
)

// Validate checks addresses, amounts and economy parameters. Addresses left
// empty are reported by the binaries that need them.
func (c *Config) Validate() error {
	if err := c.Farm.Validate(); err != nil {
		return err
	}
	for name, raw := range map[string]string{
		"AdminAddress":       c.AdminAddress,
		"VaultAddress":       c.VaultAddress,
		"DistributorAddress": c.DistributorAddress,
	} {
		if _, err := common.ParseAddress(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if _, err := c.GenesisBalances(); err != nil {
		return err
	}
	if c.Auth.AllowedClockSkew.Duration < 0 {
		return fmt.Errorf("config: Auth.AllowedClockSkew must not be negative")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("config: Telemetry.SampleRatio must be within [0,1]")
	}
	return nil
}

// Addresses returns the parsed admin, vault and distributor addresses.
func (c *Config) Addresses() (admin, vault, distributor [20]byte, err error) {
	if admin, err = common.ParseAddress(c.AdminAddress); err != nil {
		return
	}
	if vault, err = common.ParseAddress(c.VaultAddress); err != nil {
		return
	}
	distributor, err = common.ParseAddress(c.DistributorAddress)
	return
}

// GenesisBalances parses the configured allocations.
func (c *Config) GenesisBalances() (map[[20]byte]*big.Int, error) {
	out := make(map[[20]byte]*big.Int, len(c.Genesis.Allocations))
	for i, alloc := range c.Genesis.Allocations {
		addr, err := common.ParseAddress(alloc.Address)
		if err != nil || addr == ([20]byte{}) {
			return nil, fmt.Errorf("config: Genesis.Allocations[%d].Address invalid", i)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Amount), 10)
		if !ok || amount.Sign() < 0 {
			return nil, fmt.Errorf("config: Genesis.Allocations[%d].Amount invalid", i)
		}
		if prev, dup := out[addr]; dup {
			amount.Add(amount, prev)
		}
		out[addr] = amount
	}
	return out, nil
}
