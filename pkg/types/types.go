package types

import "context"

// ChainMonitor is implemented by chain.Monitor.
type ChainMonitor interface {
	ProbeChain(ctx context.Context, name string) (*ChainStatus, error)
	CheckContract(ctx context.Context, name string) (*ContractStatus, error)
	Status(name string) (*ChainStatus, bool)
	ChainNames() []string
	ContractNames() []string
}
