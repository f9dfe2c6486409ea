package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"telegram-english-tutor/internal/domain/ports/adapter"
)

var _ adapter.TokenTransferScanner = (*BscScanClient)(nil)

// BscScanClient implements adapter.TokenTransferScanner against the BscScan
// account/tokentx API, filtered to one BEP-20 token contract. Values come
// back in wei (18 decimals) and are converted to token units.
type BscScanClient struct {
	apiKey   string
	base     string
	contract string
	client   *http.Client
}

func NewBscScanClient(apiKey, base, contract string) (*BscScanClient, error) {
	if apiKey == "" {
		return nil, errors.New("bscscan api key empty")
	}
	if base == "" {
		base = "https://api.bscscan.com/api"
	}
	if contract == "" {
		return nil, errors.New("token contract address empty")
	}
	return &BscScanClient{
		apiKey:   apiKey,
		base:     base,
		contract: contract,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type tokenTxResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  json.RawMessage
}

type tokenTxRow struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Hash        string `json:"hash"`
	TimeStamp   string `json:"timeStamp"`
	BlockNumber string `json:"blockNumber"`
}

func (c *BscScanClient) IncomingTransfers(ctx context.Context, wallet string, startBlock int64) ([]adapter.TokenTransfer, error) {
	if wallet == "" {
		return nil, errors.New("wallet address empty")
	}

	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "tokentx")
	q.Set("contractaddress", c.contract)
	q.Set("address", wallet)
	q.Set("startblock", strconv.FormatInt(startBlock, 10))
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", "100")
	q.Set("sort", "desc")
	q.Set("apikey", c.apiKey)

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"?"+q.Encode(), nil)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bscscan http %d", resp.StatusCode)
	}

	var payload tokenTxResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Status != "1" {
		// "No transactions found" is an empty result, not an error.
		if strings.Contains(payload.Message, "No transactions found") {
			return nil, nil
		}
		return nil, fmt.Errorf("bscscan api: %s", payload.Message)
	}

	var rows []tokenTxRow
	if err := json.Unmarshal(payload.Result, &rows); err != nil {
		return nil, err
	}

	walletLower := strings.ToLower(wallet)
	var out []adapter.TokenTransfer
	for _, tx := range rows {
		if strings.ToLower(tx.To) != walletLower {
			continue
		}
		wei, err := strconv.ParseFloat(tx.Value, 64)
		if err != nil {
			continue
		}
		ts, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)
		block, _ := strconv.ParseInt(tx.BlockNumber, 10, 64)
		out = append(out, adapter.TokenTransfer{
			Hash:      tx.Hash,
			From:      tx.From,
			To:        tx.To,
			Amount:    wei / 1e18,
			Timestamp: ts,
			Block:     block,
		})
	}
	return out, nil
}
