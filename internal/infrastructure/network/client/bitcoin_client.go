package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
)

// BitcoinClient reads from and broadcasts to an Esplora REST indexer.
type BitcoinClient struct {
	rest  *restClient
	chain entity.ChainConfig
}

var _ port.BitcoinClient = (*BitcoinClient)(nil)

// NewBitcoinClient creates a client for chain.RPC.
func NewBitcoinClient(chain entity.ChainConfig, timeout time.Duration, limiter *rate.Limiter) *BitcoinClient {
	return &BitcoinClient{
		rest:  newRESTClient(chain.ID, chain.RPC, timeout, limiter, nil),
		chain: chain,
	}
}

type esploraStats struct {
	FundedTxoSum int64 `json:"funded_txo_sum"`
	SpentTxoSum  int64 `json:"spent_txo_sum"`
}

type esploraAddress struct {
	ChainStats esploraStats `json:"chain_stats"`
}

type esploraUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

func (c *BitcoinClient) Chain() entity.ChainConfig {
	return c.chain
}

// AddressBalance returns funded minus spent confirmed output value in satoshi.
func (c *BitcoinClient) AddressBalance(ctx context.Context, address string) (int64, error) {
	var info esploraAddress
	if err := c.rest.getJSON(ctx, "balance", "/address/"+url.PathEscape(address), &info); err != nil {
		return 0, err
	}
	return info.ChainStats.FundedTxoSum - info.ChainStats.SpentTxoSum, nil
}

func (c *BitcoinClient) UTXOs(ctx context.Context, address string) ([]port.BitcoinUTXO, error) {
	var raw []esploraUTXO
	if err := c.rest.getJSON(ctx, "utxo", "/address/"+url.PathEscape(address)+"/utxo", &raw); err != nil {
		return nil, err
	}
	out := make([]port.BitcoinUTXO, 0, len(raw))
	for _, u := range raw {
		out = append(out, port.BitcoinUTXO{TxID: u.TxID, Vout: u.Vout, Value: u.Value, Confirmed: u.Status.Confirmed})
	}
	return out, nil
}

// FeeRate returns the estimate for targetBlocks, or the closest faster target
// the indexer reports.
func (c *BitcoinClient) FeeRate(ctx context.Context, targetBlocks int) (float64, error) {
	var estimates map[string]float64
	if err := c.rest.getJSON(ctx, "fee_estimates", "/fee-estimates", &estimates); err != nil {
		return 0, err
	}
	best, bestTarget := 0.0, 0
	for k, v := range estimates {
		target, err := strconv.Atoi(k)
		if err != nil || target > targetBlocks {
			continue
		}
		if target > bestTarget {
			best, bestTarget = v, target
		}
	}
	if bestTarget == 0 {
		return 0, fmt.Errorf("no fee estimate for %d blocks", targetBlocks)
	}
	return best, nil
}

// Broadcast posts a raw transaction hex and returns the txid.
func (c *BitcoinClient) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	_, body, err := c.rest.do(ctx, "broadcast", fasthttp.MethodPost, "/tx", "text/plain", []byte(rawTxHex))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
