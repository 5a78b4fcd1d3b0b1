package types

import (
	"strings"

	"github.com/0xPuncker/evm-indexer/pkg/abis"
	"github.com/ethereum/go-ethereum/common"
)

// Chain describes one network the indexer connects to.
type Chain struct {
	Name string `json:"name" validate:"required"`
	ID   uint64 `json:"id" validate:"gt=0"`
	RPC  string `json:"rpc" validate:"required" mask:"url"`
}

// Contract binds a deployed contract to the chain it lives on.
type Contract struct {
	Name       string           `json:"name" validate:"required"`
	Chain      string           `json:"chain" validate:"required"`
	ABI        *abis.Definition `json:"-" validate:"-"`
	Address    string           `json:"address" validate:"required"`
	StartBlock uint64           `json:"startBlock"`
}

// ABIName returns the name of the bound ABI, or an empty string.
func (c Contract) ABIName() string {
	if c.ABI == nil {
		return ""
	}
	return c.ABI.Name
}

// HexAddress converts Address. Callers should validate the address first.
func (c Contract) HexAddress() common.Address {
	return common.HexToAddress(strings.TrimSpace(c.Address))
}
