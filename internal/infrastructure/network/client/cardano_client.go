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

const blockfrostPageSize = 100

// CardanoClient reads from and submits to a Blockfrost REST indexer.
type CardanoClient struct {
	rest  *restClient
	chain entity.ChainConfig
}

var _ port.CardanoClient = (*CardanoClient)(nil)

// NewCardanoClient creates a client for chain.RPC authenticated with projectID.
func NewCardanoClient(chain entity.ChainConfig, projectID string, timeout time.Duration, limiter *rate.Limiter) *CardanoClient {
	return &CardanoClient{
		rest:  newRESTClient(chain.ID, chain.RPC, timeout, limiter, map[string]string{"project_id": projectID}),
		chain: chain,
	}
}

type blockfrostAmount struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

type blockfrostUTXO struct {
	TxHash      string             `json:"tx_hash"`
	OutputIndex uint32             `json:"output_index"`
	Amount      []blockfrostAmount `json:"amount"`
}

type blockfrostBlock struct {
	Slot uint64 `json:"slot"`
}

func (c *CardanoClient) Chain() entity.ChainConfig {
	return c.chain
}

// AddressUTXOs walks every page of /addresses/{a}/utxos.
func (c *CardanoClient) AddressUTXOs(ctx context.Context, address string) ([]port.CardanoUTXO, error) {
	var out []port.CardanoUTXO
	for page := 1; ; page++ {
		var raw []blockfrostUTXO
		path := fmt.Sprintf("/addresses/%s/utxos?page=%d", url.PathEscape(address), page)
		if err := c.rest.getJSON(ctx, "utxos", path, &raw); err != nil {
			return nil, err
		}
		for _, u := range raw {
			utxo := port.CardanoUTXO{TxHash: u.TxHash, OutputIndex: u.OutputIndex}
			for _, a := range u.Amount {
				q, err := strconv.ParseUint(a.Quantity, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid %s quantity %q: %w", a.Unit, a.Quantity, err)
				}
				if a.Unit == "lovelace" {
					utxo.Lovelace += q
					continue
				}
				if q == 0 {
					continue
				}
				if utxo.Assets == nil {
					utxo.Assets = make(map[string]uint64)
				}
				utxo.Assets[strings.ToLower(a.Unit)] += q
			}
			out = append(out, utxo)
		}
		if len(raw) < blockfrostPageSize {
			return out, nil
		}
	}
}

func (c *CardanoClient) LatestSlot(ctx context.Context) (uint64, error) {
	var b blockfrostBlock
	if err := c.rest.getJSON(ctx, "latest_block", "/blocks/latest", &b); err != nil {
		return 0, err
	}
	return b.Slot, nil
}

// SubmitTx posts a CBOR encoded transaction and returns its id.
func (c *CardanoClient) SubmitTx(ctx context.Context, cborTx []byte) (string, error) {
	_, body, err := c.rest.do(ctx, "submit", fasthttp.MethodPost, "/tx/submit", "application/cbor", cborTx)
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(body, &id); err != nil {
		return strings.Trim(strings.TrimSpace(string(body)), `"`), nil
	}
	return id, nil
}
