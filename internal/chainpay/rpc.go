package chainpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrTxNotFound = errors.New("transaction not found on chain")
)

// RPC is the slice of the blockchain JSON-RPC endpoint this package uses.
type RPC interface {
	// GetTransfer fetches a transaction and extracts the first native
	// transfer: destination account and amount in lamports. Failed reports an
	// on-chain execution error.
	GetTransfer(ctx context.Context, signature string) (*TransferInfo, error)
	// GetSignatureStatus returns nil without error when the cluster does not
	// know the signature yet.
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
}

type TransferInfo struct {
	Destination string
	Lamports    uint64
	Failed      bool
}

type SignatureStatus struct {
	ConfirmationStatus string
	Failed             bool
}

type RPCClient struct {
	HTTP     *http.Client
	Endpoint string
}

func NewRPCClient(endpoint string) *RPCClient {
	return &RPCClient{
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		Endpoint: endpoint,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s: %s", method, res.Status)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		return fmt.Errorf("rpc %s: %d %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	return json.Unmarshal(envelope.Result, result)
}

func (c *RPCClient) GetTransfer(ctx context.Context, signature string) (*TransferInfo, error) {
	var result *struct {
		Meta struct {
			Err json.RawMessage `json:"err"`
		} `json:"meta"`
		Transaction struct {
			Message struct {
				Instructions []struct {
					Parsed struct {
						Type string `json:"type"`
						Info struct {
							Destination string `json:"destination"`
							Lamports    uint64 `json:"lamports"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"instructions"`
			} `json:"message"`
		} `json:"transaction"`
	}

	params := []any{signature, map[string]any{
		"encoding":                       "jsonParsed",
		"commitment":                     "confirmed",
		"maxSupportedTransactionVersion": 0,
	}}
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrTxNotFound
	}

	info := &TransferInfo{Failed: string(result.Meta.Err) != "" && string(result.Meta.Err) != "null"}
	for _, ins := range result.Transaction.Message.Instructions {
		if ins.Parsed.Type == "transfer" {
			info.Destination = ins.Parsed.Info.Destination
			info.Lamports = ins.Parsed.Info.Lamports
			break
		}
	}
	return info, nil
}

func (c *RPCClient) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var result struct {
		Value []*struct {
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}

	params := []any{[]string{signature}, map[string]any{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}
	v := result.Value[0]
	return &SignatureStatus{
		ConfirmationStatus: v.ConfirmationStatus,
		Failed:             string(v.Err) != "" && string(v.Err) != "null",
	}, nil
}
