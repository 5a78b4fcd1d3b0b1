// Package config builds the indexer configuration: the chains to connect to
// and the contracts to index on them.
package config

import (
	"os"
	"sort"

	"github.com/0xPuncker/evm-indexer/pkg/abis"
	"github.com/0xPuncker/evm-indexer/pkg/types"
)

const (
	// RPCEnv is the variable the default mainnet endpoint is read from.
	RPCEnv = "RPC_URL"

	DefaultChainName    = "mainnet"
	DefaultContractName = "ExampleContract"
	DefaultAddress      = "0x0000000000000000000000000000000000000000"
	DefaultStartBlock   = 1234567
)

// Config is immutable once created. Accessors hand out copies.
type Config struct {
	chains    map[string]types.Chain
	contracts map[string]types.Contract
}

// CreateConfig assembles a configuration from chain and contract descriptors
// keyed by name. It never fails: use Validate before handing the value to
// anything that connects to a chain.
func CreateConfig(chains map[string]types.Chain, contracts map[string]types.Contract) *Config {
	cfg := &Config{
		chains:    make(map[string]types.Chain, len(chains)),
		contracts: make(map[string]types.Contract, len(contracts)),
	}

	for name, chain := range chains {
		chain.Name = name
		cfg.chains[name] = chain
	}
	for name, contract := range contracts {
		contract.Name = name
		cfg.contracts[name] = contract
	}

	return cfg
}

// Default is the built-in configuration: the example contract on mainnet,
// reached through the endpoint in RPC_URL. An unset variable leaves the
// endpoint empty.
func Default() *Config {
	return CreateConfig(
		map[string]types.Chain{
			DefaultChainName: {
				ID:  1,
				RPC: os.Getenv(RPCEnv),
			},
		},
		map[string]types.Contract{
			DefaultContractName: {
				Chain:      DefaultChainName,
				ABI:        abis.ExampleContract(),
				Address:    DefaultAddress,
				StartBlock: DefaultStartBlock,
			},
		},
	)
}

func (c *Config) Chain(name string) (types.Chain, bool) {
	chain, ok := c.chains[name]
	return chain, ok
}

func (c *Config) Contract(name string) (types.Contract, bool) {
	contract, ok := c.contracts[name]
	return contract, ok
}

func (c *Config) Chains() map[string]types.Chain {
	chains := make(map[string]types.Chain, len(c.chains))
	for name, chain := range c.chains {
		chains[name] = chain
	}
	return chains
}

func (c *Config) Contracts() map[string]types.Contract {
	contracts := make(map[string]types.Contract, len(c.contracts))
	for name, contract := range c.contracts {
		contracts[name] = contract
	}
	return contracts
}

func (c *Config) ChainNames() []string {
	names := make([]string, 0, len(c.chains))
	for name := range c.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) ContractNames() []string {
	names := make([]string, 0, len(c.contracts))
	for name := range c.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContractsForChain returns the contracts bound to chain, sorted by name.
func (c *Config) ContractsForChain(chain string) []types.Contract {
	var contracts []types.Contract
	for _, name := range c.ContractNames() {
		if contract := c.contracts[name]; contract.Chain == chain {
			contracts = append(contracts, contract)
		}
	}
	return contracts
}
