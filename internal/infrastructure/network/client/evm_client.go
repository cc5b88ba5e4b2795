package client

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/metrics"
	"multichain_wallet/internal/pkg/utils"
)

// maxBatchSize bounds the number of calls sent in one JSON-RPC batch.
const maxBatchSize = 50

// EVMClient implements port.EVMClient for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	chain          entity.ChainConfig
	rpcCallTimeout time.Duration
}

var _ port.EVMClient = (*EVMClient)(nil)

// ERC20 ABI minimal part for balanceOf
const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
	erc20MethodID   []byte
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
		erc20MethodID = parsedERC20ABI.Methods["balanceOf"].ID
	})
}

// NewEVMClient dials chain.RPC. For HTTP endpoints no request is made until the first call.
func NewEVMClient(chain entity.ChainConfig, connectionTimeout, rpcCallTimeout time.Duration) (*EVMClient, error) {
	initParsedERC20ABI()

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	c, err := ethclient.DialContext(ctx, chain.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s for %s: %w", chain.RPC, chain.Name, err)
	}
	return &EVMClient{ethClient: c, chain: chain, rpcCallTimeout: rpcCallTimeout}, nil
}

func (c *EVMClient) Chain() entity.ChainConfig {
	return c.chain
}

// Balances reads the native balance and every token balance of owner in two
// batched round trips: eth_getBalance with eth_getCode per token, then
// balanceOf for each token that has code.
func (c *EVMClient) Balances(ctx context.Context, owner string, tokens []entity.TokenInfo) (*big.Int, []port.TokenBalance, error) {
	ownerAddr := common.HexToAddress(owner)
	results := make([]port.TokenBalance, len(tokens))
	for i, t := range tokens {
		results[i].Token = t
	}

	nativeResult := new(hexutil.Big)
	codeResults := make([]hexutil.Bytes, len(tokens))
	elems := make([]rpc.BatchElem, 0, len(tokens)+1)
	elems = append(elems, rpc.BatchElem{
		Method: "eth_getBalance",
		Args:   []interface{}{ownerAddr, "latest"},
		Result: nativeResult,
	})
	for i, t := range tokens {
		elems = append(elems, rpc.BatchElem{
			Method: "eth_getCode",
			Args:   []interface{}{common.HexToAddress(t.Address), "latest"},
			Result: &codeResults[i],
		})
	}
	if err := c.batch(ctx, "get_balance", elems); err != nil {
		return nil, nil, err
	}
	if elems[0].Error != nil {
		return nil, nil, fmt.Errorf("failed to fetch native balance for %s: %w", owner, elems[0].Error)
	}

	withCode := make([]int, 0, len(tokens))
	for i := range tokens {
		switch {
		case elems[i+1].Error != nil:
			results[i].Err = fmt.Errorf("failed to fetch code of %s: %w", tokens[i].Address, elems[i+1].Error)
		case len(codeResults[i]) == 0:
			results[i].NoCode = true
		default:
			withCode = append(withCode, i)
		}
	}

	if len(withCode) > 0 {
		callData := append(append([]byte{}, erc20MethodID...), common.LeftPadBytes(ownerAddr.Bytes(), 32)...)
		callResults := make([]hexutil.Bytes, len(tokens))
		calls := make([]rpc.BatchElem, len(withCode))
		for j, i := range withCode {
			calls[j] = rpc.BatchElem{
				Method: "eth_call",
				Args: []interface{}{map[string]interface{}{
					"to":   common.HexToAddress(tokens[i].Address),
					"data": hexutil.Bytes(callData),
				}, "latest"},
				Result: &callResults[i],
			}
		}
		if err := c.batch(ctx, "balance_of", calls); err != nil {
			for _, i := range withCode {
				results[i].Err = err
			}
		} else {
			for j, i := range withCode {
				if calls[j].Error != nil {
					results[i].Err = fmt.Errorf("failed to fetch %s balance: %w", tokens[i].Symbol, calls[j].Error)
					continue
				}
				results[i].Balance, results[i].Err = unpackBalance(callResults[i])
			}
		}
	}

	return (*big.Int)(nativeResult), results, nil
}

func unpackBalance(raw []byte) (*big.Int, error) {
	if len(raw) == 0 {
		return big.NewInt(0), nil
	}
	unpacked, err := parsedERC20ABI.Unpack("balanceOf", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result %s: %w", hexutil.Encode(raw), err)
	}
	if len(unpacked) == 0 {
		return nil, fmt.Errorf("balanceOf unpack returned no data")
	}
	v, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", unpacked[0])
	}
	return v, nil
}

// batch sends elems in chunks of maxBatchSize.
func (c *EVMClient) batch(ctx context.Context, op string, elems []rpc.BatchElem) error {
	rawRPCClient := c.ethClient.Client()
	for _, chunk := range utils.Batch(elems, maxBatchSize) {
		callCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
		err := rawRPCClient.BatchCallContext(callCtx, chunk)
		cancel()
		metrics.ObserveRPC(c.chain.ID, op, err)
		if err != nil {
			return fmt.Errorf("RPC batch call failed: %w", err)
		}
	}
	return nil
}

func (c *EVMClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()
	gas, err := c.ethClient.EstimateGas(ctx, msg)
	metrics.ObserveRPC(c.chain.ID, "estimate_gas", err)
	return gas, err
}

type latestBlock struct {
	BaseFee *hexutil.Big `json:"baseFeePerGas"`
}

// FeeData reads the latest base fee, the suggested tip and the legacy gas price.
// BaseFee is nil on chains without a fee market.
func (c *EVMClient) FeeData(ctx context.Context) (port.EVMFeeData, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	var fd port.EVMFeeData
	var block *latestBlock
	err := c.ethClient.Client().CallContext(ctx, &block, "eth_getBlockByNumber", "latest", false)
	metrics.ObserveRPC(c.chain.ID, "latest_block", err)
	if err != nil {
		return fd, fmt.Errorf("failed to fetch latest block: %w", err)
	}
	if block != nil && block.BaseFee != nil {
		fd.BaseFee = block.BaseFee.ToInt()
		tip, err := c.ethClient.SuggestGasTipCap(ctx)
		metrics.ObserveRPC(c.chain.ID, "gas_tip_cap", err)
		if err != nil {
			return fd, fmt.Errorf("failed to suggest gas tip cap: %w", err)
		}
		fd.TipCap = tip
	}

	price, err := c.ethClient.SuggestGasPrice(ctx)
	metrics.ObserveRPC(c.chain.ID, "gas_price", err)
	if err != nil {
		return fd, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	fd.GasPrice = price
	return fd, nil
}

func (c *EVMClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()
	nonce, err := c.ethClient.PendingNonceAt(ctx, account)
	metrics.ObserveRPC(c.chain.ID, "nonce", err)
	return nonce, err
}

func (c *EVMClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()
	out, err := c.ethClient.CallContract(ctx, msg, nil)
	metrics.ObserveRPC(c.chain.ID, "call", err)
	return out, err
}

func (c *EVMClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()
	err := c.ethClient.SendTransaction(ctx, tx)
	metrics.ObserveRPC(c.chain.ID, "send_transaction", err)
	return err
}

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}
