package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the part of an Ethereum client the monitor needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Dialer opens a Backend for an RPC endpoint.
type Dialer func(ctx context.Context, rpc string) (Backend, error)

// DialEthclient connects with go-ethereum's ethclient. HTTP endpoints are
// not contacted until the first call.
func DialEthclient(ctx context.Context, rpc string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpc)
	if err != nil {
		return nil, err
	}
	return client, nil
}
