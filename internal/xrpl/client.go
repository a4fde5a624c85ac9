package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// networkURLs maps network names to their public JSON-RPC endpoints.
var networkURLs = map[string]string{
	"mainnet": "https://xrplcluster.com/",
	"testnet": "https://s.altnet.rippletest.net:51234/",
	"devnet":  "https://s.devnet.rippletest.net:51234/",
}

// Client is a thin JSON-RPC client for the XRP Ledger implementing Gateway.
type Client struct {
	url     string
	network string
	client  *http.Client
	log     *logrus.Logger
}

// NewClient initializes a gateway for the given network. An explicit rpcURL
// overrides the network default.
func NewClient(network, rpcURL string, log *logrus.Logger) *Client {
	url, ok := networkURLs[network]
	if !ok {
		network = "testnet"
		url = networkURLs[network]
	}
	if rpcURL != "" {
		url = rpcURL
	}
	return &Client{
		url:     url,
		network: network,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
		log: log,
	}
}

// Network returns the configured ledger network name.
func (c *Client) Network() string { return c.network }

type rpcRequest struct {
	Method string                   `json:"method"`
	Params []map[string]interface{} `json:"params"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// call performs a single JSON-RPC round trip. Transport-level timeouts are
// mapped to ErrTimeout so callers can distinguish indeterminate outcomes.
func (c *Client) call(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{Method: method, Params: []map[string]interface{}{params}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s: %w", method, ErrTimeout)
		}
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status code %d", method, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}
	c.log.Debugf("XRPL %s response: %s", method, string(body))

	var env rpcEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	var status rpcStatus
	if err := json.Unmarshal(env.Result, &status); err == nil && status.Status == "error" {
		msg := status.ErrorMessage
		if msg == "" {
			msg = status.Error
		}
		return nil, fmt.Errorf("%s: ledger error: %s", method, msg)
	}

	return env.Result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// Submit signs and submits a transaction via the ledger's sign-and-submit
// endpoint and interprets the engine result.
func (c *Client) Submit(ctx context.Context, tx Transaction, w Wallet) (*SubmitResult, error) {
	result, err := c.call(ctx, "submit", map[string]interface{}{
		"tx_json": tx.TxJSON(),
		"secret":  w.Seed,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		EngineResult        string `json:"engine_result"`
		EngineResultMessage string `json:"engine_result_message"`
		TxJSON              struct {
			Hash string `json:"hash"`
		} `json:"tx_json"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode submit result: %w", err)
	}

	success, retryable := classifyResult(parsed.EngineResult)
	if !success {
		return nil, &SubmissionError{
			Code:      parsed.EngineResult,
			Message:   parsed.EngineResultMessage,
			Retryable: retryable,
		}
	}

	c.log.Infof("%s submitted: hash=%s result=%s", tx.TransactionType(), parsed.TxJSON.Hash, parsed.EngineResult)
	return &SubmitResult{
		Hash:       parsed.TxJSON.Hash,
		ResultCode: parsed.EngineResult,
		Raw:        result,
	}, nil
}

// AccountInfo fetches the validated state of an account.
func (c *Client) AccountInfo(ctx context.Context, address string) (*AccountState, error) {
	result, err := c.call(ctx, "account_info", map[string]interface{}{
		"account":      address,
		"ledger_index": "validated",
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		AccountData struct {
			Account  string `json:"Account"`
			Balance  string `json:"Balance"`
			Sequence uint32 `json:"Sequence"`
		} `json:"account_data"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode account_info result: %w", err)
	}

	balance, err := DropsToXRP(parsed.AccountData.Balance)
	if err != nil {
		return nil, err
	}
	return &AccountState{
		Address:  parsed.AccountData.Account,
		Balance:  balance,
		Sequence: parsed.AccountData.Sequence,
	}, nil
}

// AccountLines fetches the trust lines of an account.
func (c *Client) AccountLines(ctx context.Context, address string) ([]TrustLine, error) {
	result, err := c.call(ctx, "account_lines", map[string]interface{}{
		"account":      address,
		"ledger_index": "validated",
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Lines []struct {
			Account  string `json:"account"`
			Currency string `json:"currency"`
			Balance  string `json:"balance"`
			Limit    string `json:"limit"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode account_lines result: %w", err)
	}

	lines := make([]TrustLine, 0, len(parsed.Lines))
	for _, l := range parsed.Lines {
		lines = append(lines, TrustLine{
			Account:  l.Account,
			Currency: l.Currency,
			Balance:  l.Balance,
			Limit:    l.Limit,
		})
	}
	return lines, nil
}

// AccountTransactions fetches the most recent transactions of an account.
func (c *Client) AccountTransactions(ctx context.Context, address string, limit int) ([]TxRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	result, err := c.call(ctx, "account_tx", map[string]interface{}{
		"account":          address,
		"ledger_index_min": -1,
		"ledger_index_max": -1,
		"limit":            limit,
		"binary":           false,
		"forward":          false,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Transactions []struct {
			Tx struct {
				TransactionType string `json:"TransactionType"`
				Hash            string `json:"hash"`
			} `json:"tx"`
			Meta struct {
				TransactionResult string `json:"TransactionResult"`
			} `json:"meta"`
		} `json:"transactions"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode account_tx result: %w", err)
	}

	records := make([]TxRecord, 0, len(parsed.Transactions))
	for _, t := range parsed.Transactions {
		records = append(records, TxRecord{
			Type:   t.Tx.TransactionType,
			Result: t.Meta.TransactionResult,
			Hash:   t.Tx.Hash,
		})
	}
	return records, nil
}
