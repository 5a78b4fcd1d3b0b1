package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// RPCNode is an in-process JSON-RPC endpoint answering the subset of the
// eth namespace the monitor uses.
type RPCNode struct {
	server *httptest.Server

	mu      sync.Mutex
	chainID uint64
	head    uint64
	code    map[string]string
	failing bool
	calls   map[string]int
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func NewRPCNode(t *testing.T, chainID, head uint64) *RPCNode {
	t.Helper()

	node := &RPCNode{
		chainID: chainID,
		head:    head,
		code:    make(map[string]string),
		calls:   make(map[string]int),
	}
	node.server = httptest.NewServer(http.HandlerFunc(node.handle))
	t.Cleanup(node.server.Close)

	return node
}

func (n *RPCNode) URL() string {
	return n.server.URL
}

func (n *RPCNode) SetHead(head uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.head = head
}

// SetCode installs runtime bytecode (0x-prefixed hex) at address.
func (n *RPCNode) SetCode(address, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.code[strings.ToLower(address)] = code
}

// SetFailing makes every call return a JSON-RPC error.
func (n *RPCNode) SetFailing(failing bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing = failing
}

func (n *RPCNode) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *RPCNode) handle(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch {
	case n.failing:
		resp.Error = &rpcError{Code: -32000, Message: "node unavailable"}
	case req.Method == "eth_chainId":
		resp.Result = fmt.Sprintf("0x%x", n.chainID)
	case req.Method == "eth_blockNumber":
		resp.Result = fmt.Sprintf("0x%x", n.head)
	case req.Method == "eth_getCode":
		var address string
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params[0], &address)
		}
		code, ok := n.code[strings.ToLower(address)]
		if !ok {
			code = "0x"
		}
		resp.Result = code
	default:
		resp.Error = &rpcError{Code: -32601, Message: "method not found"}
	}
	n.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
