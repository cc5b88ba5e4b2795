package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/utils"
)

const (
	gasBufferPercent   = 140
	minGasLimit        = 21_000
	maxGasLimit        = 1_000_000
	priorityFeePercent = 150
	gweiDecimals       = 9

	solanaBaseFeeLamports = 5_000

	cardanoMinFeeA        = 44
	cardanoMinFeeB        = 155_381
	cardanoIOSurcharge    = 10_000
	cardanoCoinsPerUTXOB  = 4_310
	cardanoTTLOffsetSlots = 7_200

	bitcoinMinFeeRate     = 1
	bitcoinMaxFeeRate     = 100
	bitcoinTargetBlocks   = 3
	bitcoinDustLimit      = 546
	segwitDiscountPercent = 75
	p2pkhSigScriptSize    = 107
	p2pkhPkScriptSize     = 25
	defaultBitcoinInputs  = 1
	defaultBitcoinOutputs = 2
)

const erc20TransferABI = `[{"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

var erc20Transfer = mustABI(erc20TransferABI)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return parsed
}

// FeeServiceImpl implements port.FeeEstimator.
type FeeServiceImpl struct {
	clients port.ClientProvider
	logger  port.Logger
}

var _ port.FeeEstimator = (*FeeServiceImpl)(nil)

func NewFeeService(clients port.ClientProvider, logger port.Logger) *FeeServiceImpl {
	return &FeeServiceImpl{clients: clients, logger: logger}
}

func feeFailed(kind entity.ChainKind, err error) error {
	var typed *entity.Error
	if errors.As(err, &typed) {
		return err
	}
	return entity.NewError(entity.CodeFeeEstimationFailed, "estimate fee", kind, err)
}

func missingParams(kind entity.ChainKind, msg string) error {
	return entity.NewError(entity.CodeMissingParameters, "estimate fee", kind, errors.New(msg))
}

// Estimate returns the fee of sending amount to `to` on chain, in the chain's native unit.
func (s *FeeServiceImpl) Estimate(ctx context.Context, chain entity.ChainConfig, to, amount string, params entity.FeeParams) (entity.FeeEstimate, error) {
	var (
		est entity.FeeEstimate
		err error
	)
	//exhaustive:enforce
	switch chain.Kind {
	case entity.KindEVM:
		est, err = s.estimateEVM(ctx, chain, to, amount, params)
	case entity.KindSolana:
		est = estimateSolana()
	case entity.KindCardano:
		est, err = estimateCardano(params)
	case entity.KindBitcoin:
		est, err = estimateBitcoin(params)
	default:
		err = entity.UnsupportedKind("estimate fee", chain.Kind)
	}
	if err != nil {
		s.logger.Warn("Fee estimation failed", "chain", chain.ID, "error", err)
		return entity.FeeEstimate{}, err
	}
	est.Kind = chain.Kind
	return est, nil
}

// clampGas applies the safety buffer (rounded up) and the gas band.
func clampGas(estimated uint64) uint64 {
	gas := (estimated*gasBufferPercent + 99) / 100
	if gas < minGasLimit {
		return minGasLimit
	}
	if gas > maxGasLimit {
		return maxGasLimit
	}
	return gas
}

// effectiveGasPrice is base + tip×1.5 on fee-market chains, the legacy gas price otherwise.
func effectiveGasPrice(fd port.EVMFeeData) (*big.Int, error) {
	if fd.BaseFee != nil {
		tip := new(big.Int)
		if fd.TipCap != nil {
			tip.Mul(fd.TipCap, big.NewInt(priorityFeePercent))
			tip.Div(tip, big.NewInt(100))
		}
		return tip.Add(tip, fd.BaseFee), nil
	}
	if fd.GasPrice == nil {
		return nil, errors.New("no fee data available")
	}
	return new(big.Int).Set(fd.GasPrice), nil
}

// evmCall builds the call the transfer would make. Token symbols call transfer on the token contract.
func evmCall(chain entity.ChainConfig, from, to, amount, symbol string, allowZero bool) (ethereum.CallMsg, error) {
	if !common.IsHexAddress(to) {
		return ethereum.CallMsg{}, entity.NewError(entity.CodeInvalidAddress, "build call", entity.KindEVM, fmt.Errorf("invalid recipient %q", to))
	}
	msg := ethereum.CallMsg{}
	if common.IsHexAddress(from) {
		msg.From = common.HexToAddress(from)
	}
	recipient := common.HexToAddress(to)

	if chain.IsNativeSymbol(symbol) {
		value, err := parseAmount(amount, chain.Native.Decimals, entity.KindEVM, allowZero)
		if err != nil {
			return msg, err
		}
		msg.To = &recipient
		msg.Value = value
		return msg, nil
	}

	token, ok := chain.TokenBySymbol(symbol)
	if !ok {
		return msg, entity.NewError(entity.CodeInvalidAddress, "build call", entity.KindEVM, fmt.Errorf("unknown token %s on %s", symbol, chain.ID))
	}
	value, err := parseAmount(amount, token.Decimals, entity.KindEVM, allowZero)
	if err != nil {
		return msg, err
	}
	data, err := erc20Transfer.Pack("transfer", recipient, value)
	if err != nil {
		return msg, err
	}
	contract := common.HexToAddress(token.Address)
	msg.To = &contract
	msg.Data = data
	return msg, nil
}

// parseAmount converts amount to smallest units. With allowZero an empty or
// zero amount is accepted, which estimation needs and sending does not.
func parseAmount(amount string, decimals int32, kind entity.ChainKind, allowZero bool) (*big.Int, error) {
	if allowZero && strings.TrimSpace(amount) == "" {
		return new(big.Int), nil
	}
	v, err := utils.ParseUnits(strings.TrimSpace(amount), decimals)
	if err != nil {
		return nil, entity.NewError(entity.CodeInvalidAmount, "parse amount", kind, err)
	}
	if v.Sign() < 0 || (!allowZero && v.Sign() == 0) {
		return nil, entity.NewError(entity.CodeInvalidAmount, "parse amount", kind, fmt.Errorf("amount %q must be positive", amount))
	}
	return v, nil
}

func (s *FeeServiceImpl) estimateEVM(ctx context.Context, chain entity.ChainConfig, to, amount string, params entity.FeeParams) (entity.FeeEstimate, error) {
	msg, err := evmCall(chain, params.From, to, amount, params.Symbol, true)
	if err != nil {
		return entity.FeeEstimate{}, err
	}
	client, err := s.clients.EVM(chain)
	if err != nil {
		return entity.FeeEstimate{}, feeFailed(entity.KindEVM, err)
	}
	estimated, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return entity.FeeEstimate{}, feeFailed(entity.KindEVM, fmt.Errorf("estimate gas: %w", err))
	}
	gas := clampGas(estimated)

	fd, err := client.FeeData(ctx)
	if err != nil {
		return entity.FeeEstimate{}, feeFailed(entity.KindEVM, err)
	}
	price, err := effectiveGasPrice(fd)
	if err != nil {
		return entity.FeeEstimate{}, feeFailed(entity.KindEVM, err)
	}
	fee := new(big.Int).Mul(price, new(big.Int).SetUint64(gas))

	return entity.FeeEstimate{
		Fee: utils.FormatUnits(fee, chain.Native.Decimals),
		Details: entity.FeeDetails{
			GasLimit:     gas,
			GasPriceGwei: utils.FormatUnits(price, gweiDecimals),
		},
	}, nil
}

func estimateSolana() entity.FeeEstimate {
	return entity.FeeEstimate{
		Fee:     utils.FormatUint64Units(solanaBaseFeeLamports, 9),
		Details: entity.FeeDetails{ComputeUnits: 0},
	}
}

// cardanoFeeLovelace is the linear fee plus the per input and output surcharge.
func cardanoFeeLovelace(size, inputs, outputs int) uint64 {
	return uint64(cardanoMinFeeA*size+cardanoMinFeeB) + uint64(inputs+outputs)*cardanoIOSurcharge
}

func estimateCardano(params entity.FeeParams) (entity.FeeEstimate, error) {
	if params.TxSize <= 0 || params.NumInputs <= 0 || params.NumOutputs <= 0 {
		return entity.FeeEstimate{}, missingParams(entity.KindCardano, "txSize, numInputs and numOutputs are required")
	}
	fee := cardanoFeeLovelace(params.TxSize, params.NumInputs, params.NumOutputs)
	minUTXO := uint64(params.TxSize) * cardanoCoinsPerUTXOB
	return entity.FeeEstimate{
		Fee: utils.FormatUint64Units(fee, 6),
		Details: entity.FeeDetails{
			MinUTXO: utils.FormatUint64Units(minUTXO, 6),
			Size:    int64(params.TxSize),
		},
	}, nil
}

// clampFeeRate bounds a sat/byte rate, rounding fractional rates up.
func clampFeeRate(rate float64) int64 {
	r := int64(math.Ceil(rate))
	if r < bitcoinMinFeeRate {
		return bitcoinMinFeeRate
	}
	if r > bitcoinMaxFeeRate {
		return bitcoinMaxFeeRate
	}
	return r
}

// bitcoinSkeleton is an unsigned P2PKH transaction whose inputs carry
// placeholder signature scripts of typical size.
func bitcoinSkeleton(inputs, outputs int) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	for i := 0; i < inputs; i++ {
		in := wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, uint32(i)), make([]byte, p2pkhSigScriptSize), nil)
		tx.AddTxIn(in)
	}
	for i := 0; i < outputs; i++ {
		tx.AddTxOut(wire.NewTxOut(0, make([]byte, p2pkhPkScriptSize)))
	}
	return tx
}

// bitcoinVSize is the virtual size of the skeleton in vbytes.
func bitcoinVSize(inputs, outputs int) int64 {
	weight := blockchain.GetTransactionWeight(btcutil.NewTx(bitcoinSkeleton(inputs, outputs)))
	return (weight + blockchain.WitnessScaleFactor - 1) / blockchain.WitnessScaleFactor
}

// bitcoinDiscountedSize applies the compact-signature discount, rounded up.
func bitcoinDiscountedSize(inputs, outputs int) int64 {
	return (bitcoinVSize(inputs, outputs)*segwitDiscountPercent + 99) / 100
}

func estimateBitcoin(params entity.FeeParams) (entity.FeeEstimate, error) {
	if params.FeeRate <= 0 {
		return entity.FeeEstimate{}, missingParams(entity.KindBitcoin, "feeRate is required")
	}
	inputs, outputs := params.NumBTCInputs, params.NumBTCOutputs
	if inputs <= 0 {
		inputs = defaultBitcoinInputs
	}
	if outputs <= 0 {
		outputs = defaultBitcoinOutputs
	}
	rate := clampFeeRate(float64(params.FeeRate))
	size := bitcoinDiscountedSize(inputs, outputs)
	return entity.FeeEstimate{
		Fee:     utils.FormatUnits(big.NewInt(size*rate), 8),
		Details: entity.FeeDetails{FeeRate: rate, Size: size},
	}, nil
}
