package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
)

// TxServiceImpl implements port.TransactionSubmitter.
type TxServiceImpl struct {
	clients port.ClientProvider
	logger  port.Logger
}

var _ port.TransactionSubmitter = (*TxServiceImpl)(nil)

func NewTxService(clients port.ClientProvider, logger port.Logger) *TxServiceImpl {
	return &TxServiceImpl{clients: clients, logger: logger}
}

func submitFailed(kind entity.ChainKind, op string, err error) error {
	var typed *entity.Error
	if errors.As(err, &typed) {
		return err
	}
	return entity.NewError(entity.CodeSubmissionFailed, op, kind, err)
}

// Send builds, signs and submits req and returns the transaction id.
func (s *TxServiceImpl) Send(ctx context.Context, req entity.TransferRequest) (string, error) {
	var (
		txID string
		err  error
	)
	//exhaustive:enforce
	switch req.Chain.Kind {
	case entity.KindEVM:
		txID, err = s.sendEVM(ctx, req)
	case entity.KindSolana:
		txID, err = s.sendSolana(ctx, req)
	case entity.KindBitcoin:
		txID, err = s.sendBitcoin(ctx, req)
	case entity.KindCardano:
		txID, err = s.sendCardano(ctx, req)
	default:
		err = entity.UnsupportedKind("send", req.Chain.Kind)
	}
	if err != nil {
		s.logger.Error("Transaction submission failed", "chain", req.Chain.ID, "to", req.To, "error", err)
		return "", err
	}
	s.logger.Info("Transaction submitted", "chain", req.Chain.ID, "to", req.To, "tx", txID)
	return txID, nil
}

func (s *TxServiceImpl) sendEVM(ctx context.Context, req entity.TransferRequest) (string, error) {
	key, err := parseEVMKey(req.PrivateKey)
	if err != nil {
		return "", err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	msg, err := evmCall(req.Chain, from.Hex(), req.To, req.Amount, req.Symbol, false)
	if err != nil {
		return "", err
	}
	if msg.Value == nil {
		msg.Value = new(big.Int)
	}

	client, err := s.clients.EVM(req.Chain)
	if err != nil {
		return "", submitFailed(entity.KindEVM, "get client", err)
	}
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", submitFailed(entity.KindEVM, "get nonce", err)
	}
	estimated, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return "", submitFailed(entity.KindEVM, "estimate gas", err)
	}
	gas := clampGas(estimated)
	fd, err := client.FeeData(ctx)
	if err != nil {
		return "", submitFailed(entity.KindEVM, "fee data", err)
	}

	chainID := new(big.Int).SetUint64(req.Chain.ChainID)
	var inner types.TxData
	if fd.BaseFee != nil {
		tip := new(big.Int)
		if fd.TipCap != nil {
			tip.Set(fd.TipCap)
		}
		feeCap := new(big.Int).Mul(fd.BaseFee, big.NewInt(2))
		feeCap.Add(feeCap, tip)
		inner = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        msg.To,
			Value:     msg.Value,
			Data:      msg.Data,
		}
	} else {
		if fd.GasPrice == nil {
			return "", submitFailed(entity.KindEVM, "fee data", errors.New("no gas price available"))
		}
		inner = &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: fd.GasPrice,
			Gas:      gas,
			To:       msg.To,
			Value:    msg.Value,
			Data:     msg.Data,
		}
	}

	signed, err := types.SignTx(types.NewTx(inner), types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return "", submitFailed(entity.KindEVM, "sign", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", submitFailed(entity.KindEVM, "send transaction", err)
	}
	return signed.Hash().Hex(), nil
}

func (s *TxServiceImpl) sendSolana(ctx context.Context, req entity.TransferRequest) (string, error) {
	key, err := parseSolanaKey(req.PrivateKey)
	if err != nil {
		return "", err
	}
	from := key.PublicKey()
	to, err := solana.PublicKeyFromBase58(req.To)
	if err != nil {
		return "", entity.NewError(entity.CodeInvalidAddress, "send", entity.KindSolana, err)
	}
	amount, err := parseAmount(req.Amount, req.Chain.Native.Decimals, entity.KindSolana, false)
	if err != nil {
		return "", err
	}
	if !amount.IsUint64() {
		return "", entity.NewError(entity.CodeInvalidAmount, "send", entity.KindSolana, fmt.Errorf("amount %s overflows lamports", req.Amount))
	}

	client, err := s.clients.Solana(req.Chain)
	if err != nil {
		return "", submitFailed(entity.KindSolana, "get client", err)
	}
	blockhash, err := client.LatestBlockhash(ctx)
	if err != nil {
		return "", submitFailed(entity.KindSolana, "latest blockhash", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(amount.Uint64(), from, to).Build()},
		blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return "", submitFailed(entity.KindSolana, "build", err)
	}
	if _, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(from) {
			return &key
		}
		return nil
	}); err != nil {
		return "", submitFailed(entity.KindSolana, "sign", err)
	}

	sig, err := client.SendTransaction(ctx, tx)
	if err != nil {
		return "", submitFailed(entity.KindSolana, "send transaction", err)
	}
	return sig.String(), nil
}
