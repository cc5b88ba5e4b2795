package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gagliardetto/solana-go"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
)

// Vectors for the passphrase "alice" on the default paths.
const (
	aliceEVMAddress     = "0x81d91d04b99E92b3a2CeDFE32ECea8225AB38fA3"
	aliceEVMKey         = "d7881e26e2a7bc49fbcb5016f838679071e3ea98c4e0a044cdae01fca1b153b7"
	aliceBitcoinAddress = "1QKQSnvsseiDBAfg2j9PsHhvLcyskmERyg"
	aliceBitcoinKey     = "e2efac6287251166615c8835b026f81af1d4e8b5bed21526c6dda7a6af45326d"
	aliceSolanaAddress  = "7BbpuVQE1CkGchPXRXJ2QaiR8yoEQQYWzYJagwySjFzz"
	aliceSolanaKey      = "dqsUXpWRn1dSqPN6RmG8Z35EKSdgJ4yLbPsPJ211SJi7zwZXwBz3ZLMet9iZDbjio3Kyi8t3xLgiRXbck8d9tug"
	aliceCardanoAddress = "addr1qxz6z53063lddyf6xrnf2kn96yknwqe92n3s0jypzakyj893hykf3qmclvjyj9q229dn4mhcaregqcmf8t68kwfdhrdqx70w2l"
	aliceCardanoKey     = "b0914114940dd53514cf4f996f752ebaba001d9f2bb424cc096e9744cf8e4758" +
		"706221df13cd1db95da40b3781f072d73229e5992602b7f3e2bd0f4c787c1288"
)

var (
	testEthereum = entity.ChainConfig{
		ID:      "ethereum",
		Name:    "Ethereum",
		Kind:    entity.KindEVM,
		Path:    "m/44'/60'/0'/0",
		ChainID: 1,
		Native:  entity.NativeCurrency{Name: "Ethereum", Symbol: "ETH", Decimals: 18},
		Tokens: []entity.TokenInfo{
			{Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", Name: "Wrapped Bitcoin", Symbol: "WBTC", Decimals: 8, ChainID: 1},
		},
	}
	testPolygon = entity.ChainConfig{
		ID:      "polygon",
		Name:    "Polygon",
		Kind:    entity.KindEVM,
		Path:    "m/44'/60'/0'/0",
		ChainID: 137,
		Native:  entity.NativeCurrency{Name: "MATIC", Symbol: "MATIC", Decimals: 18},
		Tokens: []entity.TokenInfo{
			{Address: "0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6", Name: "Wrapped Bitcoin", Symbol: "WBTC", Decimals: 8, ChainID: 137},
		},
	}
	testBitcoin = entity.ChainConfig{
		ID:     "bitcoin",
		Name:   "Bitcoin",
		Kind:   entity.KindBitcoin,
		Path:   "m/44'/0'/0'/0",
		Native: entity.NativeCurrency{Name: "Bitcoin", Symbol: "BTC", Decimals: 8},
	}
	testSolana = entity.ChainConfig{
		ID:     "solana",
		Name:   "Solana",
		Kind:   entity.KindSolana,
		Path:   "m/44'/501'/0'/0",
		Native: entity.NativeCurrency{Name: "Solana", Symbol: "SOL", Decimals: 9},
	}
	testCardano = entity.ChainConfig{
		ID:     "cardano",
		Name:   "Cardano",
		Kind:   entity.KindCardano,
		Path:   "m/1852'/1815'/0'/0",
		Native: entity.NativeCurrency{Name: "Cardano", Symbol: "ADA", Decimals: 6},
	}
)

var errBoom = errors.New("boom")

type stubRegistry struct {
	chains []entity.ChainConfig
}

func (r stubRegistry) All() []entity.ChainConfig {
	return append([]entity.ChainConfig(nil), r.chains...)
}

func (r stubRegistry) ByID(id string) (entity.ChainConfig, bool) {
	for _, c := range r.chains {
		if c.ID == id {
			return c, true
		}
	}
	return entity.ChainConfig{}, false
}

type fakeEVM struct {
	mu sync.Mutex

	chain       entity.ChainConfig
	native      *big.Int
	tokens      []port.TokenBalance
	balancesErr error
	gas         uint64
	gasErr      error
	fees        port.EVMFeeData
	feesErr     error
	nonce       uint64
	callOut     []byte
	callErr     error

	calls   int
	lastMsg ethereum.CallMsg
	sent    []*types.Transaction
}

func (f *fakeEVM) Chain() entity.ChainConfig { return f.chain }

func (f *fakeEVM) Balances(_ context.Context, _ string, _ []entity.TokenInfo) (*big.Int, []port.TokenBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.native, f.tokens, f.balancesErr
}

func (f *fakeEVM) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMsg = msg
	return f.gas, f.gasErr
}

func (f *fakeEVM) FeeData(context.Context) (port.EVMFeeData, error) {
	return f.fees, f.feesErr
}

func (f *fakeEVM) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeEVM) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMsg = msg
	return f.callOut, f.callErr
}

func (f *fakeEVM) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

type fakeBitcoin struct {
	chain      entity.ChainConfig
	balance    int64
	balanceErr error
	utxos      []port.BitcoinUTXO
	rate       float64
	broadcast  []string
}

func (f *fakeBitcoin) Chain() entity.ChainConfig { return f.chain }

func (f *fakeBitcoin) AddressBalance(context.Context, string) (int64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeBitcoin) UTXOs(context.Context, string) ([]port.BitcoinUTXO, error) {
	return f.utxos, nil
}

func (f *fakeBitcoin) FeeRate(context.Context, int) (float64, error) {
	return f.rate, nil
}

func (f *fakeBitcoin) Broadcast(_ context.Context, rawTxHex string) (string, error) {
	f.broadcast = append(f.broadcast, rawTxHex)
	return "", nil
}

type fakeSolana struct {
	chain      entity.ChainConfig
	lamports   uint64
	balanceErr error
	sent       []*solana.Transaction
}

func (f *fakeSolana) Chain() entity.ChainConfig { return f.chain }

func (f *fakeSolana) Balance(context.Context, solana.PublicKey) (uint64, error) {
	return f.lamports, f.balanceErr
}

func (f *fakeSolana) LatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.HashFromBytes(make([]byte, 32)), nil
}

func (f *fakeSolana) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

type fakeCardano struct {
	mu        sync.Mutex
	chain     entity.ChainConfig
	utxos     []port.CardanoUTXO
	utxosErr  error
	slot      uint64
	submitted [][]byte
	calls     int
}

func (f *fakeCardano) Chain() entity.ChainConfig { return f.chain }

func (f *fakeCardano) AddressUTXOs(context.Context, string) ([]port.CardanoUTXO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.utxos, f.utxosErr
}

func (f *fakeCardano) LatestSlot(context.Context) (uint64, error) {
	return f.slot, nil
}

func (f *fakeCardano) SubmitTx(_ context.Context, cborTx []byte) (string, error) {
	f.submitted = append(f.submitted, cborTx)
	return "", nil
}

// fakeClients serves at most one fake per kind and fails for the rest.
type fakeClients struct {
	evm     *fakeEVM
	bitcoin *fakeBitcoin
	solana  *fakeSolana
	cardano *fakeCardano
}

func noClient(chain entity.ChainConfig) error {
	return fmt.Errorf("no client for %s", chain.ID)
}

func (f *fakeClients) EVM(chain entity.ChainConfig) (port.EVMClient, error) {
	if f.evm == nil {
		return nil, noClient(chain)
	}
	return f.evm, nil
}

func (f *fakeClients) Bitcoin(chain entity.ChainConfig) (port.BitcoinClient, error) {
	if f.bitcoin == nil {
		return nil, noClient(chain)
	}
	return f.bitcoin, nil
}

func (f *fakeClients) Solana(chain entity.ChainConfig) (port.SolanaClient, error) {
	if f.solana == nil {
		return nil, noClient(chain)
	}
	return f.solana, nil
}

func (f *fakeClients) Cardano(chain entity.ChainConfig) (port.CardanoClient, error) {
	if f.cardano == nil {
		return nil, noClient(chain)
	}
	return f.cardano, nil
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}
