package restapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
)

// FingerprintChecker looks up and optionally registers passphrase fingerprints.
type FingerprintChecker interface {
	CheckFingerprint(ctx context.Context, passphrase string, register bool) (string, bool, error)
}

// Sender checks funds and submits a signed transfer.
type Sender interface {
	Send(ctx context.Context, req entity.TransferRequest, params entity.FeeParams) (string, entity.FeeEstimate, error)
}

// WalletHandler serves the chain catalogue, derivation, fees, transfers and fingerprints.
type WalletHandler struct {
	registry     port.ChainRegistry
	deriver      port.WalletDeriver
	fees         port.FeeEstimator
	sender       Sender
	fingerprints FingerprintChecker
	logger       port.Logger
}

func NewWalletHandler(
	registry port.ChainRegistry,
	deriver port.WalletDeriver,
	fees port.FeeEstimator,
	sender Sender,
	fingerprints FingerprintChecker,
	logger port.Logger,
) *WalletHandler {
	return &WalletHandler{
		registry:     registry,
		deriver:      deriver,
		fees:         fees,
		sender:       sender,
		fingerprints: fingerprints,
		logger:       logger,
	}
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  entity.Code `json:"code,omitempty"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps the error code to an HTTP status.
func writeError(c *gin.Context, err error) {
	code := entity.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case entity.CodeEmptyPassphrase, entity.CodeInvalidPathSegment, entity.CodeInvalidKeyMaterial,
		entity.CodeMissingParameters, entity.CodeInvalidAddress, entity.CodeInvalidAmount,
		entity.CodeUnsupportedChainKind:
		status = http.StatusBadRequest
	case entity.CodeInsufficientFunds:
		status = http.StatusUnprocessableEntity
	case entity.CodeFeeEstimationFailed, entity.CodeSubmissionFailed:
		status = http.StatusBadGateway
	case entity.CodeNotImplemented:
		status = http.StatusNotImplemented
	}
	c.JSON(status, errorResponse{Error: err.Error(), Code: code})
}

// GetChainsHandler lists the active chains in registry order. RPC endpoints
// are left out as they may embed provider keys.
func (h *WalletHandler) GetChainsHandler(c *gin.Context) {
	chains := h.registry.All()
	for i := range chains {
		chains[i].RPC = ""
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// PassphraseRequest carries a passphrase. It is never logged.
type PassphraseRequest struct {
	Passphrase string `json:"passphrase"`
	Register   bool   `json:"register,omitempty"`
}

// APIWallet is a derived wallet as exposed over HTTP: addresses only.
type APIWallet struct {
	ChainID    string           `json:"chainId"`
	Name       string           `json:"name"`
	Kind       entity.ChainKind `json:"kind"`
	Address    string           `json:"address"`
	EOAAddress string           `json:"eoaAddress,omitempty"`
}

// PostWalletsHandler derives one address per chain. Private keys are wiped
// before the response is written and never leave the process.
func (h *WalletHandler) PostWalletsHandler(c *gin.Context) {
	var req PassphraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	wallets, failures, err := h.deriver.DeriveFromPassphrase(c.Request.Context(), req.Passphrase)
	if err != nil {
		writeError(c, err)
		return
	}
	entity.WipeAll(wallets)

	out := make([]APIWallet, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, APIWallet{
			ChainID:    w.Chain.ID,
			Name:       w.Chain.Name,
			Kind:       w.Chain.Kind,
			Address:    w.Address,
			EOAAddress: w.EOAAddress,
		})
	}
	c.JSON(http.StatusOK, gin.H{"wallets": out, "service_errors": failures})
}

// FeeRequest asks for the fee of one transfer.
type FeeRequest struct {
	ChainID string           `json:"chainId" binding:"required"`
	To      string           `json:"to"`
	Amount  string           `json:"amount"`
	Params  entity.FeeParams `json:"params"`
}

// PostFeesHandler estimates the fee of a transfer in the chain's native unit.
func (h *WalletHandler) PostFeesHandler(c *gin.Context) {
	var req FeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	chain, ok := h.registry.ByID(strings.ToLower(strings.TrimSpace(req.ChainID)))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "unknown chain " + req.ChainID})
		return
	}

	est, err := h.fees.Estimate(c.Request.Context(), chain, req.To, req.Amount, req.Params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

// TransferRequest asks to send amount of symbol (native when empty) from the
// wallet the passphrase derives on the chain.
type TransferRequest struct {
	Passphrase string           `json:"passphrase"`
	ChainID    string           `json:"chainId" binding:"required"`
	To         string           `json:"to" binding:"required"`
	Amount     string           `json:"amount" binding:"required"`
	Symbol     string           `json:"symbol"`
	Params     entity.FeeParams `json:"params"`
}

// PostTransfersHandler derives the sender wallet, then checks funds and submits.
func (h *WalletHandler) PostTransfersHandler(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	chainID := strings.ToLower(strings.TrimSpace(req.ChainID))
	if _, ok := h.registry.ByID(chainID); !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "unknown chain " + req.ChainID})
		return
	}

	wallets, failures, err := h.deriver.DeriveFromPassphrase(c.Request.Context(), req.Passphrase)
	if err != nil {
		writeError(c, err)
		return
	}
	defer entity.WipeAll(wallets)

	var from *entity.WalletInfo
	for i := range wallets {
		if wallets[i].Chain.ID == chainID {
			from = &wallets[i]
			break
		}
	}
	if from == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no wallet derived for " + chainID, "service_errors": failures})
		return
	}

	transfer := entity.TransferRequest{
		Chain:      from.Chain,
		From:       from.SigningAddress(),
		To:         strings.TrimSpace(req.To),
		Amount:     strings.TrimSpace(req.Amount),
		Symbol:     req.Symbol,
		PrivateKey: from.PrivateKey,
	}
	txID, fee, err := h.sender.Send(c.Request.Context(), transfer, req.Params)
	if err != nil {
		h.logger.Warn("Transfer failed", "chain", chainID, "code", entity.CodeOf(err), "error", err)
		writeError(c, err)
		return
	}
	h.logger.Info("Transfer submitted", "chain", chainID, "txId", txID)
	c.JSON(http.StatusOK, gin.H{"txId": txID, "from": transfer.From, "fee": fee})
}

// PostFingerprintHandler reports whether the passphrase was registered before.
func (h *WalletHandler) PostFingerprintHandler(c *gin.Context) {
	var req PassphraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	fp, known, err := h.fingerprints.CheckFingerprint(c.Request.Context(), req.Passphrase, req.Register)
	if err != nil {
		var typed *entity.Error
		if !errors.As(err, &typed) {
			h.logger.Error("Fingerprint store failed", "error", err)
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fingerprint": fp, "known": known})
}
