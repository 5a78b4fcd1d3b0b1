package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

var (
	ErrNoChains         = errors.New("no chains configured")
	ErrNoContracts      = errors.New("no contracts configured")
	ErrInvalidChainID   = errors.New("chain id must be a positive integer")
	ErrDuplicateChainID = errors.New("chain id used by more than one chain")
	ErrMissingRPC       = errors.New("rpc endpoint is not set")
	ErrInvalidRPC       = errors.New("rpc endpoint is not a valid url")
	ErrUnknownChain     = errors.New("contract references an unknown chain")
	ErrInvalidAddress   = errors.New("contract address is not a valid hex address")
	ErrMissingABI       = errors.New("contract has no abi")
	ErrEmptyName        = errors.New("name must not be empty")
)

var rpcSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
}

var validate = validator.New()

// Validate reports every problem with the configuration. The returned error
// joins one error per problem; each wraps one of the Err* sentinels.
func (c *Config) Validate() error {
	var errs []error

	if len(c.chains) == 0 {
		errs = append(errs, ErrNoChains)
	}
	if len(c.contracts) == 0 {
		errs = append(errs, ErrNoContracts)
	}

	idOwners := make(map[uint64]string)
	for _, name := range c.ChainNames() {
		chain := c.chains[name]
		errs = append(errs, validateChain(chain)...)

		if chain.ID == 0 {
			continue
		}
		if owner, dup := idOwners[chain.ID]; dup {
			errs = append(errs, fmt.Errorf("chain %s: %w: %d is also used by %s",
				name, ErrDuplicateChainID, chain.ID, owner))
			continue
		}
		idOwners[chain.ID] = name
	}

	for _, name := range c.ContractNames() {
		contract := c.contracts[name]
		errs = append(errs, validateContract(contract)...)

		if contract.Chain != "" {
			if _, ok := c.chains[contract.Chain]; !ok {
				errs = append(errs, fmt.Errorf("contract %s: %w: %q", name, ErrUnknownChain, contract.Chain))
			}
		}
	}

	return errors.Join(errs...)
}

func validateChain(chain types.Chain) []error {
	var errs []error

	for _, fe := range structErrors(chain) {
		switch fe.StructField() {
		case "Name":
			errs = append(errs, fmt.Errorf("chain: %w", ErrEmptyName))
		case "ID":
			errs = append(errs, fmt.Errorf("chain %s: %w", chain.Name, ErrInvalidChainID))
		case "RPC":
			errs = append(errs, fmt.Errorf("chain %s: %w (set %s)", chain.Name, ErrMissingRPC, RPCEnv))
		}
	}

	if chain.RPC != "" {
		if err := validateRPC(chain.RPC); err != nil {
			errs = append(errs, fmt.Errorf("chain %s: %w", chain.Name, err))
		}
	}

	return errs
}

func validateContract(contract types.Contract) []error {
	var errs []error

	for _, fe := range structErrors(contract) {
		switch fe.StructField() {
		case "Name":
			errs = append(errs, fmt.Errorf("contract: %w", ErrEmptyName))
		case "Chain":
			errs = append(errs, fmt.Errorf("contract %s: %w: chain not set", contract.Name, ErrUnknownChain))
		case "Address":
			errs = append(errs, fmt.Errorf("contract %s: %w: address not set", contract.Name, ErrInvalidAddress))
		}
	}

	if contract.ABI == nil {
		errs = append(errs, fmt.Errorf("contract %s: %w", contract.Name, ErrMissingABI))
	}

	if contract.Address != "" {
		if err := ValidateAddress(contract.Address); err != nil {
			errs = append(errs, fmt.Errorf("contract %s: %w", contract.Name, err))
		}
	}

	return errs
}

func structErrors(s interface{}) validator.ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs
	}
	return nil
}

func validateRPC(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRPC, err)
	}
	if !rpcSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRPC, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidRPC)
	}
	return nil
}

// ValidateAddress accepts 0x-prefixed 20 byte hex addresses. Mixed-case
// addresses must carry a valid EIP-55 checksum.
func ValidateAddress(address string) error {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return fmt.Errorf("%w: %q lacks 0x prefix", ErrInvalidAddress, address)
	}
	if len(address) != 2+2*common.AddressLength || !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	digits := address[2:]
	if strings.ToLower(digits) != digits && strings.ToUpper(digits) != digits {
		mixed, err := common.NewMixedcaseAddressFromString(address)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		if !mixed.ValidChecksum() {
			return fmt.Errorf("%w: %q has an invalid checksum", ErrInvalidAddress, address)
		}
	}

	return nil
}
