package port

import (
	"context"

	"multichain_wallet/internal/domain/entity"
)

// FeeEstimator computes native-unit fee estimates.
type FeeEstimator interface {
	Estimate(ctx context.Context, chain entity.ChainConfig, to, amount string, params entity.FeeParams) (entity.FeeEstimate, error)
}

// TransactionSubmitter builds, signs and submits a single transfer.
type TransactionSubmitter interface {
	Send(ctx context.Context, req entity.TransferRequest) (string, error)
}
