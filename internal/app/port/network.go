package port

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gagliardetto/solana-go"

	"multichain_wallet/internal/domain/entity"
)

// ErrUpstreamStatus marks an indexer reply with a non-success HTTP status.
var ErrUpstreamStatus = errors.New("upstream returned non-success status")

// ChainRegistry is the static catalogue of supported chains.
type ChainRegistry interface {
	// All returns every chain in registry order. The order is stable run to run.
	All() []entity.ChainConfig
	// ByID returns the chain with the given id.
	ByID(id string) (entity.ChainConfig, bool)
}

// EVMFeeData is the fee-market snapshot of an EVM chain.
type EVMFeeData struct {
	BaseFee  *big.Int // nil when the chain has no fee market
	TipCap   *big.Int
	GasPrice *big.Int
}

// TokenBalance is the result of one ERC-20 balance read.
type TokenBalance struct {
	Token   entity.TokenInfo
	Balance *big.Int
	NoCode  bool // no contract deployed at Token.Address
	Err     error
}

// EVMClient talks to one EVM-compatible chain.
type EVMClient interface {
	Chain() entity.ChainConfig
	// Balances reads the native balance of owner and the balance of every token.
	// Per-token failures are reported in the TokenBalance entries.
	Balances(ctx context.Context, owner string, tokens []entity.TokenInfo) (*big.Int, []TokenBalance, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	FeeData(ctx context.Context) (EVMFeeData, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// BitcoinUTXO is an unspent output reported by the indexer.
type BitcoinUTXO struct {
	TxID      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	Value     int64  `json:"value"`
	Confirmed bool   `json:"confirmed"`
}

// BitcoinClient talks to an Esplora-compatible indexer.
type BitcoinClient interface {
	Chain() entity.ChainConfig
	// AddressBalance returns confirmed funded minus spent output value in satoshi.
	AddressBalance(ctx context.Context, address string) (int64, error)
	UTXOs(ctx context.Context, address string) ([]BitcoinUTXO, error)
	// FeeRate returns the sat/vbyte rate for confirmation within targetBlocks.
	FeeRate(ctx context.Context, targetBlocks int) (float64, error)
	Broadcast(ctx context.Context, rawTxHex string) (string, error)
}

// SolanaClient talks to a Solana JSON-RPC node.
type SolanaClient interface {
	Chain() entity.ChainConfig
	Balance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// CardanoUTXO is an unspent output reported by the indexer. Assets holds the
// native tokens it also carries, keyed by policy id followed by the hex asset name.
type CardanoUTXO struct {
	TxHash      string
	OutputIndex uint32
	Lovelace    uint64
	Assets      map[string]uint64
}

// CardanoClient talks to a Blockfrost-compatible indexer.
type CardanoClient interface {
	Chain() entity.ChainConfig
	// AddressUTXOs returns every unspent output at address. A non-success reply
	// is reported as an error wrapping ErrUpstreamStatus.
	AddressUTXOs(ctx context.Context, address string) ([]CardanoUTXO, error)
	LatestSlot(ctx context.Context) (uint64, error)
	SubmitTx(ctx context.Context, cborTx []byte) (string, error)
}

// ClientProvider hands out one long-lived client per chain.
type ClientProvider interface {
	EVM(chain entity.ChainConfig) (EVMClient, error)
	Bitcoin(chain entity.ChainConfig) (BitcoinClient, error)
	Solana(chain entity.ChainConfig) (SolanaClient, error)
	Cardano(chain entity.ChainConfig) (CardanoClient, error)
}
