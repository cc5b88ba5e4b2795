package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/seed"
	"multichain_wallet/internal/pkg/utils"
)

// Defaults used by Send when the caller leaves the kind-specific fee inputs empty.
const (
	defaultCardanoTxSize  = 200
	defaultCardanoInputs  = 1
	defaultCardanoOutputs = 2
	defaultBitcoinFeeRate = 20
)

// WalletService ties estimation, balance checks and submission into one send
// operation and guards passphrases with fingerprints.
type WalletService struct {
	balances     port.BalanceFetcher
	fees         port.FeeEstimator
	submitter    port.TransactionSubmitter
	fingerprints port.FingerprintStore
	logger       port.Logger
}

func NewWalletService(
	balances port.BalanceFetcher,
	fees port.FeeEstimator,
	submitter port.TransactionSubmitter,
	fingerprints port.FingerprintStore,
	logger port.Logger,
) *WalletService {
	return &WalletService{
		balances:     balances,
		fees:         fees,
		submitter:    submitter,
		fingerprints: fingerprints,
		logger:       logger,
	}
}

// WithSendDefaults fills the fee inputs Send needs for req.
func WithSendDefaults(req entity.TransferRequest, params entity.FeeParams) entity.FeeParams {
	params.From = req.From
	params.Symbol = req.Symbol
	switch req.Chain.Kind {
	case entity.KindCardano:
		if params.TxSize <= 0 {
			params.TxSize = defaultCardanoTxSize
		}
		if params.NumInputs <= 0 {
			params.NumInputs = defaultCardanoInputs
		}
		if params.NumOutputs <= 0 {
			params.NumOutputs = defaultCardanoOutputs
		}
	case entity.KindBitcoin:
		if params.FeeRate <= 0 {
			params.FeeRate = defaultBitcoinFeeRate
		}
	case entity.KindEVM, entity.KindSolana:
	}
	return params
}

// Send estimates the fee, checks the sender can pay amount plus fee and only
// then submits. A token send needs the token balance for the amount and the
// native balance for the fee.
func (s *WalletService) Send(ctx context.Context, req entity.TransferRequest, params entity.FeeParams) (string, entity.FeeEstimate, error) {
	fee, err := s.fees.Estimate(ctx, req.Chain, req.To, req.Amount, WithSendDefaults(req, params))
	if err != nil {
		return "", entity.FeeEstimate{}, err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return "", fee, entity.NewError(entity.CodeInvalidAmount, "send", req.Chain.Kind, fmt.Errorf("amount %q must be positive", req.Amount))
	}
	feeValue, err := decimal.NewFromString(fee.Fee)
	if err != nil {
		return "", fee, entity.NewError(entity.CodeFeeEstimationFailed, "send", req.Chain.Kind, err)
	}

	assets, err := s.balances.Fetch(ctx, req.Chain, req.From)
	if err != nil {
		return "", fee, err
	}
	native := balanceOf(assets, req.Chain.Native.Symbol)

	if req.Chain.IsNativeSymbol(req.Symbol) {
		if native.LessThan(amount.Add(feeValue)) {
			return "", fee, insufficient(req, fmt.Sprintf("balance %s %s is below amount %s plus fee %s", native, req.Chain.Native.Symbol, amount, feeValue))
		}
	} else {
		token := balanceOf(assets, req.Symbol)
		if token.LessThan(amount) {
			return "", fee, insufficient(req, fmt.Sprintf("balance %s %s is below amount %s", token, req.Symbol, amount))
		}
		if native.LessThan(feeValue) {
			return "", fee, insufficient(req, fmt.Sprintf("balance %s %s is below fee %s", native, req.Chain.Native.Symbol, feeValue))
		}
	}

	txID, err := s.submitter.Send(ctx, req)
	if err != nil {
		return "", fee, err
	}
	return txID, fee, nil
}

func balanceOf(assets []entity.Asset, symbol string) decimal.Decimal {
	total := decimal.Zero
	for _, a := range assets {
		if a.Symbol != symbol {
			continue
		}
		if v, err := utils.ParseDecimal(a.Balance); err == nil {
			total = total.Add(v)
		}
	}
	return total
}

func insufficient(req entity.TransferRequest, msg string) error {
	return entity.NewError(entity.CodeInsufficientFunds, "send", req.Chain.Kind, fmt.Errorf("%s", msg))
}

// CheckFingerprint reports the fingerprint of passphrase and whether it was
// registered before. With register set an unknown fingerprint is stored.
func (s *WalletService) CheckFingerprint(ctx context.Context, passphrase string, register bool) (string, bool, error) {
	fp, err := seed.Fingerprint(passphrase)
	if err != nil {
		return "", false, err
	}
	known, err := s.fingerprints.List(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list fingerprints: %w", err)
	}
	for _, k := range known {
		if k == fp {
			return fp, true, nil
		}
	}
	if register {
		if err := s.fingerprints.Add(ctx, fp); err != nil {
			return "", false, fmt.Errorf("add fingerprint: %w", err)
		}
		s.logger.Info("Registered new passphrase fingerprint")
	}
	return fp, false, nil
}
