package testutil

import (
	"github.com/0xPuncker/evm-indexer/pkg/abis"
	"github.com/0xPuncker/evm-indexer/pkg/config"
	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/sirupsen/logrus"
)

// ExampleAddress is a checksummed address used for deployed test contracts.
const ExampleAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

// ExampleCode is runtime bytecode installed at ExampleAddress.
const ExampleCode = "0x6080604052348015600f57600080fd5b50"

// Config returns the example contract on a mainnet chain served by rpc.
func Config(rpc string, startBlock uint64) *config.Config {
	return config.CreateConfig(
		map[string]types.Chain{
			"mainnet": {ID: 1, RPC: rpc},
		},
		map[string]types.Contract{
			"ExampleContract": {
				Chain:      "mainnet",
				ABI:        abis.ExampleContract(),
				Address:    ExampleAddress,
				StartBlock: startBlock,
			},
		},
	)
}

// Logger discards output below the warning level.
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}
