package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/0xPuncker/evm-indexer/pkg/abis"
	"github.com/0xPuncker/evm-indexer/pkg/types"
	"gopkg.in/yaml.v3"
)

// document is the file and wire shape of a Config.
type document struct {
	Chains    map[string]chainEntry    `json:"chains" yaml:"chains"`
	Contracts map[string]contractEntry `json:"contracts" yaml:"contracts"`
}

type chainEntry struct {
	ID  uint64 `json:"id" yaml:"id"`
	RPC string `json:"rpc" yaml:"rpc"`
}

type contractEntry struct {
	Chain      string `json:"chain" yaml:"chain"`
	ABI        string `json:"abi" yaml:"abi"`
	Address    string `json:"address" yaml:"address"`
	StartBlock uint64 `json:"startBlock" yaml:"startBlock"`
}

// envRef matches ${VAR}. Bare $VAR is left alone.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a YAML configuration file. ${VAR} references in string values
// are expanded from the environment after decoding; unset variables expand
// to empty strings. An empty path returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data, filepath.Dir(absPath))
}

// Parse decodes a YAML configuration. Relative ABI file paths are resolved
// against baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	chains := make(map[string]types.Chain, len(doc.Chains))
	for name, entry := range doc.Chains {
		chains[name] = types.Chain{
			ID:  entry.ID,
			RPC: strings.TrimSpace(expandEnv(entry.RPC)),
		}
	}

	contracts := make(map[string]types.Contract, len(doc.Contracts))
	for name, entry := range doc.Contracts {
		def, err := resolveABI(expandEnv(entry.ABI), baseDir)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", name, err)
		}
		contracts[name] = types.Contract{
			Chain:      expandEnv(entry.Chain),
			ABI:        def,
			Address:    strings.TrimSpace(expandEnv(entry.Address)),
			StartBlock: entry.StartBlock,
		}
	}

	return CreateConfig(chains, contracts), nil
}

func expandEnv(value string) string {
	return envRef.ReplaceAllStringFunc(value, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// resolveABI treats values ending in .json as files and everything else as
// a registered name. An empty value leaves the contract without an ABI.
func resolveABI(ref, baseDir string) (*abis.Definition, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}

	if strings.EqualFold(filepath.Ext(ref), ".json") {
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(baseDir, ref)
		}
		return abis.LoadFile(ref)
	}

	return abis.Lookup(ref)
}

func (c *Config) document() document {
	doc := document{
		Chains:    make(map[string]chainEntry, len(c.chains)),
		Contracts: make(map[string]contractEntry, len(c.contracts)),
	}
	for name, chain := range c.chains {
		doc.Chains[name] = chainEntry{ID: chain.ID, RPC: chain.RPC}
	}
	for name, contract := range c.contracts {
		doc.Contracts[name] = contractEntry{
			Chain:      contract.Chain,
			ABI:        contract.ABIName(),
			Address:    contract.Address,
			StartBlock: contract.StartBlock,
		}
	}
	return doc
}

func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.document())
}

func (c *Config) MarshalYAML() (interface{}, error) {
	return c.document(), nil
}
