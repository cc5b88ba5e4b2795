package client

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/metrics"
)

// SolanaClient implements port.SolanaClient over the JSON-RPC API.
type SolanaClient struct {
	rpc            *rpc.Client
	chain          entity.ChainConfig
	rpcCallTimeout time.Duration
}

var _ port.SolanaClient = (*SolanaClient)(nil)

func NewSolanaClient(chain entity.ChainConfig, rpcCallTimeout time.Duration) *SolanaClient {
	return &SolanaClient{rpc: rpc.New(chain.RPC), chain: chain, rpcCallTimeout: rpcCallTimeout}
}

func (c *SolanaClient) Chain() entity.ChainConfig {
	return c.chain
}

// Balance returns the confirmed lamport balance of owner.
func (c *SolanaClient) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()
	out, err := c.rpc.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	metrics.ObserveRPC(c.chain.ID, "get_balance", err)
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

func (c *SolanaClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	metrics.ObserveRPC(c.chain.ID, "latest_blockhash", err)
	if err != nil {
		return solana.Hash{}, err
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, fmt.Errorf("empty blockhash response")
	}
	return out.Value.Blockhash, nil
}

func (c *SolanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()
	sig, err := c.rpc.SendTransaction(ctx, tx)
	metrics.ObserveRPC(c.chain.ID, "send_transaction", err)
	return sig, err
}
