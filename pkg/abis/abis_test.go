package abis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExampleContract(t *testing.T) {
	def := ExampleContract()
	require.NotNil(t, def)
	assert.Equal(t, ExampleContractAbi, def.Name)

	events := def.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "ExampleEvent", events[0].Name)
	assert.Equal(t, "ExampleEvent(address,uint256)", events[0].Signature)
	assert.Equal(t, crypto.Keccak256Hash([]byte("ExampleEvent(address,uint256)")), events[0].Topic)
	assert.Equal(t, "OwnershipTransferred", events[1].Name)

	methods := def.Methods()
	require.Len(t, methods, 2)
	assert.Equal(t, "emitExample", methods[0].Name)
	assert.Equal(t, "owner", methods[1].Name)
	assert.Equal(t, "view", methods[1].StateMutability)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("MissingAbi")
	assert.ErrorIs(t, err, ErrUnknownABI)
}

func TestRegister(t *testing.T) {
	raw := []byte(`[{"type":"event","name":"Ping","inputs":[]}]`)

	require.NoError(t, Register("PingAbi", raw))
	assert.ErrorIs(t, Register("PingAbi", raw), ErrAlreadyUsed)

	def, err := Lookup("PingAbi")
	require.NoError(t, err)
	assert.Len(t, def.Events(), 1)
	assert.Contains(t, Names(), "PingAbi")
	assert.Contains(t, Names(), ExampleContractAbi)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("Broken", []byte(`{"not":"an abi"`))
	assert.ErrorIs(t, err, ErrInvalidABI)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Token.json")
	raw := `[
		{"type": "event", "name": "Transfer", "inputs": [
			{"name": "from", "type": "address", "indexed": true},
			{"name": "to", "type": "address", "indexed": true},
			{"name": "value", "type": "uint256", "indexed": false}
		]}
	]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	def, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Token", def.Name)
	require.Len(t, def.Events(), 1)
	assert.Equal(t, "Transfer(address,address,uint256)", def.Events()[0].Signature)

	out, err := json.Marshal(def)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
