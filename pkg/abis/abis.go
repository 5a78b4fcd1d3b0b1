// Package abis holds the contract interface definitions the indexer is
// configured with, either embedded in the binary or loaded from JSON files.
package abis

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ExampleContractAbi is the registered name of the embedded example ABI.
const ExampleContractAbi = "ExampleContractAbi"

//go:embed ExampleContractAbi.json
var exampleContractABI []byte

var (
	ErrUnknownABI  = errors.New("unknown abi")
	ErrInvalidABI  = errors.New("invalid abi")
	ErrAlreadyUsed = errors.New("abi name already registered")
)

// Definition is a parsed ABI together with the JSON it was parsed from.
type Definition struct {
	Name string
	Raw  json.RawMessage
	ABI  abi.ABI
}

// Event describes one decodable event of a definition.
type Event struct {
	Name      string      `json:"name"`
	Signature string      `json:"signature"`
	Topic     common.Hash `json:"topic"`
	Anonymous bool        `json:"anonymous"`
}

// Method describes one callable member of a definition.
type Method struct {
	Name            string `json:"name"`
	Signature       string `json:"signature"`
	StateMutability string `json:"state_mutability"`
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Definition)
)

func init() {
	if err := Register(ExampleContractAbi, exampleContractABI); err != nil {
		panic(err)
	}
}

// Parse decodes a JSON ABI.
func Parse(name string, raw []byte) (*Definition, error) {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidABI, name, err)
	}

	compact := new(bytes.Buffer)
	if err := json.Compact(compact, raw); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidABI, name, err)
	}

	return &Definition{
		Name: name,
		Raw:  compact.Bytes(),
		ABI:  parsed,
	}, nil
}

// LoadFile parses the JSON ABI stored at path. The definition is named
// after the file without its extension.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read abi file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, data)
}

// Register parses raw and makes it available to Lookup under name.
func Register(name string, raw []byte) error {
	def, err := Parse(name, raw)
	if err != nil {
		return err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyUsed, name)
	}
	registry[name] = def
	return nil
}

func Lookup(name string) (*Definition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownABI, name)
	}
	return def, nil
}

// Names lists the registered definitions.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExampleContract returns the embedded example definition.
func ExampleContract() *Definition {
	def, err := Lookup(ExampleContractAbi)
	if err != nil {
		panic(err)
	}
	return def
}

// Events returns the events of the definition sorted by name.
func (d *Definition) Events() []Event {
	events := make([]Event, 0, len(d.ABI.Events))
	for _, ev := range d.ABI.Events {
		events = append(events, Event{
			Name:      ev.Name,
			Signature: ev.Sig,
			Topic:     ev.ID,
			Anonymous: ev.Anonymous,
		})
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Name < events[j].Name
	})
	return events
}

func (d *Definition) Methods() []Method {
	methods := make([]Method, 0, len(d.ABI.Methods))
	for _, m := range d.ABI.Methods {
		methods = append(methods, Method{
			Name:            m.Name,
			Signature:       m.Sig,
			StateMutability: m.StateMutability,
		})
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})
	return methods
}

func (d *Definition) MarshalJSON() ([]byte, error) {
	if len(d.Raw) == 0 {
		return []byte("[]"), nil
	}
	return d.Raw, nil
}
