package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"unitfarm/native/common"
	"unitfarm/native/payees"
)

// PayeeEntry is one payee line of the deployment file.
type PayeeEntry struct {
	Address string `yaml:"address"`
	Weight  uint64 `yaml:"weight"`
}

// PayeesFile is the fee distribution deployment file.
type PayeesFile struct {
	// Network labels logs and indexer rows only.
	Network string       `yaml:"network"`
	Payees  []PayeeEntry `yaml:"payees"`
}

// LoadPayees reads and validates the payee deployment file.
func LoadPayees(path string) (PayeesFile, []payees.Payee, error) {
	var file PayeesFile
	fh, err := os.Open(path)
	if err != nil {
		return file, nil, fmt.Errorf("open payees: %w", err)
	}
	defer fh.Close()
	dec := yaml.NewDecoder(fh)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return file, nil, fmt.Errorf("decode payees: %w", err)
	}
	list, err := file.Parse()
	if err != nil {
		return file, nil, err
	}
	return file, list, nil
}

// Parse converts the entries into payees.
func (f PayeesFile) Parse() ([]payees.Payee, error) {
	if len(f.Payees) == 0 {
		return nil, payees.ErrNoPayees
	}
	out := make([]payees.Payee, 0, len(f.Payees))
	for i, entry := range f.Payees {
		addr, err := common.ParseAddress(entry.Address)
		if err != nil {
			return nil, fmt.Errorf("payees[%d]: %w", i, err)
		}
		if addr == ([20]byte{}) {
			return nil, fmt.Errorf("payees[%d]: %w", i, payees.ErrZeroAddress)
		}
		if entry.Weight == 0 {
			return nil, fmt.Errorf("payees[%d]: weight must be positive", i)
		}
		out = append(out, payees.Payee{Address: addr, Weight: entry.Weight})
	}
	return out, nil
}

// NetworkLabel returns the trimmed network label or fallback.
func (f PayeesFile) NetworkLabel(fallback string) string {
	if label := strings.TrimSpace(f.Network); label != "" {
		return label
	}
	return fallback
}
