package types

import "time"

// ChainStatus is the result of probing a chain's RPC endpoint.
type ChainStatus struct {
	Name         string        `json:"name"`
	ConfiguredID uint64        `json:"configured_id"`
	RemoteID     uint64        `json:"remote_id,omitempty"`
	HeadBlock    uint64        `json:"head_block,omitempty"`
	Healthy      bool          `json:"healthy"`
	Error        string        `json:"error,omitempty"`
	Latency      time.Duration `json:"latency"`
	CheckedAt    time.Time     `json:"checked_at"`
}

// ContractStatus is the result of checking a contract against its chain.
type ContractStatus struct {
	Name              string    `json:"name"`
	Chain             string    `json:"chain"`
	Address           string    `json:"address"`
	StartBlock        uint64    `json:"start_block"`
	HeadBlock         uint64    `json:"head_block,omitempty"`
	HasCode           bool      `json:"has_code"`
	StartBlockReached bool      `json:"start_block_reached"`
	BlocksToStart     uint64    `json:"blocks_to_start,omitempty"`
	Error             string    `json:"error,omitempty"`
	CheckedAt         time.Time `json:"checked_at"`
}

// OK reports whether the contract can be indexed from its start block.
func (s *ContractStatus) OK() bool {
	return s.Error == "" && s.HasCode
}
