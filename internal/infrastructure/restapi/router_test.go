package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/matryer/is"

	"multichain_wallet/internal/app/service"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/logger"
)

var (
	ethereum = entity.ChainConfig{
		ID: "ethereum", Name: "Ethereum", Kind: entity.KindEVM, RPC: "https://rpc.example/key",
		Path: "m/44'/60'/0'/0", ChainID: 1,
		Native: entity.NativeCurrency{Name: "Ethereum", Symbol: "ETH", Decimals: 18},
	}
	bitcoin = entity.ChainConfig{
		ID: "bitcoin", Name: "Bitcoin", Kind: entity.KindBitcoin,
		Path:   "m/44'/0'/0'/0",
		Native: entity.NativeCurrency{Name: "Bitcoin", Symbol: "BTC", Decimals: 8},
	}
)

type stubRegistry struct{ chains []entity.ChainConfig }

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

type fakePortfolio struct {
	got []entity.WalletInfo
}

func (f *fakePortfolio) Aggregate(ctx context.Context, wallets []entity.WalletInfo) entity.Portfolio {
	return f.RefreshNow(ctx, wallets).Portfolio
}

func (f *fakePortfolio) RefreshNow(_ context.Context, wallets []entity.WalletInfo) entity.RefreshResult {
	f.got = wallets
	assets := []entity.Asset{{Chain: ethereum, Symbol: "ETH", Balance: "1.5"}}
	return entity.RefreshResult{
		Portfolio: service.AggregateAssets(logger.NewNop(), assets),
		AssetsMap: map[string][]entity.Asset{"ethereum": assets},
	}
}

type fakeFees struct{}

func (fakeFees) Estimate(_ context.Context, chain entity.ChainConfig, _, _ string, params entity.FeeParams) (entity.FeeEstimate, error) {
	if params.FeeRate == 0 {
		return entity.FeeEstimate{}, entity.NewError(entity.CodeMissingParameters, "estimate fee", chain.Kind, errors.New("feeRate is required"))
	}
	return entity.FeeEstimate{Kind: chain.Kind, Fee: "0.00001700", Details: entity.FeeDetails{FeeRate: params.FeeRate, Size: 170}}, nil
}

type fakeSender struct {
	got entity.TransferRequest
	err error
}

func (f *fakeSender) Send(_ context.Context, req entity.TransferRequest, _ entity.FeeParams) (string, entity.FeeEstimate, error) {
	f.got = req
	if f.err != nil {
		return "", entity.FeeEstimate{}, f.err
	}
	return "0xfeed", entity.FeeEstimate{Kind: req.Chain.Kind, Fee: "0.001"}, nil
}

type fakeFingerprints struct {
	known map[string]bool
}

func (f *fakeFingerprints) CheckFingerprint(_ context.Context, passphrase string, register bool) (string, bool, error) {
	if strings.TrimSpace(passphrase) == "" {
		return "", false, entity.NewError(entity.CodeEmptyPassphrase, "fingerprint", 0, errors.New("empty"))
	}
	fp := "fp-" + passphrase
	if f.known[fp] {
		return fp, true, nil
	}
	if register {
		f.known[fp] = true
	}
	return fp, false, nil
}

func newTestRouterWithSender(sender *fakeSender) (*gin.Engine, *fakePortfolio, *PortfolioHandler) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	registry := stubRegistry{chains: []entity.ChainConfig{ethereum, bitcoin}}
	portfolio := &fakePortfolio{}
	ph := NewPortfolioHandler(portfolio, registry, log)
	deriver := service.NewWalletDeriver(registry, nil, log, 2)
	wh := NewWalletHandler(registry, deriver, fakeFees{}, sender, &fakeFingerprints{known: map[string]bool{}}, log)
	return SetupRouter(wh, ph, log), portfolio, ph
}

func newTestRouter() (*gin.Engine, *fakePortfolio, *PortfolioHandler) {
	return newTestRouterWithSender(&fakeSender{})
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetChainsHidesRPC(t *testing.T) {
	is := is.New(t)
	r, _, _ := newTestRouter()

	w := do(t, r, http.MethodGet, "/api/v1/chains", "")
	is.Equal(w.Code, http.StatusOK)
	is.True(!strings.Contains(w.Body.String(), "rpc.example"))

	var body struct {
		Chains []entity.ChainConfig `json:"chains"`
	}
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &body))
	is.Equal(len(body.Chains), 2)
	is.Equal(body.Chains[0].ID, "ethereum")
	is.Equal(body.Chains[1].Kind, entity.KindBitcoin)
}

func TestPostWalletsNeverReturnsKeys(t *testing.T) {
	is := is.New(t)
	r, _, _ := newTestRouter()

	w := do(t, r, http.MethodPost, "/api/v1/wallets", `{"passphrase":"alice"}`)
	is.Equal(w.Code, http.StatusOK)

	var body struct {
		Wallets []APIWallet `json:"wallets"`
	}
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &body))
	is.Equal(len(body.Wallets), 2)
	is.Equal(body.Wallets[0].Address, "0x81d91d04b99E92b3a2CeDFE32ECea8225AB38fA3")
	is.Equal(body.Wallets[1].Address, "1QKQSnvsseiDBAfg2j9PsHhvLcyskmERyg")
	is.True(!strings.Contains(w.Body.String(), "d7881e26e2a7bc49")) // evm key
	is.True(!strings.Contains(strings.ToLower(w.Body.String()), "private"))

	w = do(t, r, http.MethodPost, "/api/v1/wallets", `{"passphrase":"  "}`)
	is.Equal(w.Code, http.StatusBadRequest)
	is.True(strings.Contains(w.Body.String(), string(entity.CodeEmptyPassphrase)))
}

func TestPostPortfolio(t *testing.T) {
	is := is.New(t)
	r, portfolio, _ := newTestRouter()

	w := do(t, r, http.MethodPost, "/api/v1/portfolio",
		`{"wallets":[{"chainId":"Ethereum","address":" 0xabc "},{"chainId":"dogecoin","address":"D123"}]}`)
	is.Equal(w.Code, http.StatusOK)

	is.Equal(len(portfolio.got), 1)
	is.Equal(portfolio.got[0].Chain.ID, "ethereum")
	is.Equal(portfolio.got[0].Address, "0xabc")

	var body APIPortfolioResponse
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &body))
	is.Equal(body.Data.Portfolio["ETH"].Total, "1.500000000000000000")
	is.Equal(len(body.Data.AssetsMap["ethereum"]), 1)
	is.Equal(len(body.ServiceErrors), 1)
	is.Equal(body.ServiceErrors[0].ChainID, "dogecoin")

	w = do(t, r, http.MethodPost, "/api/v1/portfolio", `not json`)
	is.Equal(w.Code, http.StatusBadRequest)
}

func TestGetPortfolioServesLatestRefresh(t *testing.T) {
	is := is.New(t)
	r, portfolio, ph := newTestRouter()

	w := do(t, r, http.MethodGet, "/api/v1/portfolio", "")
	is.Equal(w.Code, http.StatusOK)
	is.True(strings.Contains(w.Body.String(), "No refresh has completed yet."))

	ph.Publish(portfolio.RefreshNow(context.Background(), nil))
	w = do(t, r, http.MethodGet, "/api/v1/portfolio", "")
	is.Equal(w.Code, http.StatusOK)

	var body APIPortfolioResponse
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &body))
	is.Equal(body.Data.Portfolio["ETH"].Breakdown["Ethereum"], "1.500000000000000000")
	is.True(body.Data.UpdatedAt != nil)
	is.Equal(body.StatusMessage, "Portfolio retrieved successfully.")
}

func TestPostFees(t *testing.T) {
	is := is.New(t)
	r, _, _ := newTestRouter()

	w := do(t, r, http.MethodPost, "/api/v1/fees", `{"chainId":"bitcoin","to":"1x","amount":"0.1","params":{"feeRate":10}}`)
	is.Equal(w.Code, http.StatusOK)
	var est entity.FeeEstimate
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &est))
	is.Equal(est.Kind, entity.KindBitcoin)
	is.Equal(est.Fee, "0.00001700")
	is.Equal(est.Details.Size, int64(170))

	w = do(t, r, http.MethodPost, "/api/v1/fees", `{"chainId":"bitcoin","to":"1x","amount":"0.1"}`)
	is.Equal(w.Code, http.StatusBadRequest)
	is.True(strings.Contains(w.Body.String(), string(entity.CodeMissingParameters)))

	w = do(t, r, http.MethodPost, "/api/v1/fees", `{"chainId":"dogecoin"}`)
	is.Equal(w.Code, http.StatusNotFound)
}

func TestPostTransfers(t *testing.T) {
	is := is.New(t)
	sender := &fakeSender{}
	r, _, _ := newTestRouterWithSender(sender)

	w := do(t, r, http.MethodPost, "/api/v1/transfers",
		`{"passphrase":"alice","chainId":"Bitcoin","to":" 1BoatSLRHtKNngkdXEeobR76b53LETtpyT ","amount":"0.001"}`)
	is.Equal(w.Code, http.StatusOK)
	is.True(strings.Contains(w.Body.String(), "0xfeed"))
	is.True(!strings.Contains(w.Body.String(), "e2efac6287251166")) // btc key
	is.Equal(sender.got.Chain.ID, "bitcoin")
	is.Equal(sender.got.From, "1QKQSnvsseiDBAfg2j9PsHhvLcyskmERyg")
	is.Equal(sender.got.To, "1BoatSLRHtKNngkdXEeobR76b53LETtpyT")
	is.Equal(sender.got.PrivateKey, "e2efac6287251166615c8835b026f81af1d4e8b5bed21526c6dda7a6af45326d")

	sender.err = entity.NewError(entity.CodeInsufficientFunds, "send", entity.KindBitcoin, errors.New("short"))
	w = do(t, r, http.MethodPost, "/api/v1/transfers",
		`{"passphrase":"alice","chainId":"bitcoin","to":"1x","amount":"5"}`)
	is.Equal(w.Code, http.StatusUnprocessableEntity)

	w = do(t, r, http.MethodPost, "/api/v1/transfers",
		`{"passphrase":"alice","chainId":"dogecoin","to":"1x","amount":"5"}`)
	is.Equal(w.Code, http.StatusNotFound)

	w = do(t, r, http.MethodPost, "/api/v1/transfers", `{"passphrase":"alice","chainId":"bitcoin"}`)
	is.Equal(w.Code, http.StatusBadRequest)
}

func TestPostFingerprint(t *testing.T) {
	is := is.New(t)
	r, _, _ := newTestRouter()

	var body struct {
		Fingerprint string `json:"fingerprint"`
		Known       bool   `json:"known"`
	}
	w := do(t, r, http.MethodPost, "/api/v1/fingerprint", `{"passphrase":"bob","register":true}`)
	is.Equal(w.Code, http.StatusOK)
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &body))
	is.Equal(body.Fingerprint, "fp-bob")
	is.True(!body.Known)

	w = do(t, r, http.MethodPost, "/api/v1/fingerprint", `{"passphrase":"bob"}`)
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &body))
	is.True(body.Known)

	w = do(t, r, http.MethodPost, "/api/v1/fingerprint", `{"passphrase":""}`)
	is.Equal(w.Code, http.StatusBadRequest)
}

func TestMetricsEndpoint(t *testing.T) {
	is := is.New(t)
	r, _, _ := newTestRouter()

	w := do(t, r, http.MethodGet, "/metrics", "")
	is.Equal(w.Code, http.StatusOK)
	is.True(strings.Contains(w.Body.String(), "go_goroutines"))
}

func TestWriteErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		want int
	}{
		{entity.NewError(entity.CodeInvalidAmount, "x", 0, nil), http.StatusBadRequest},
		{entity.NewError(entity.CodeInsufficientFunds, "x", 0, nil), http.StatusUnprocessableEntity},
		{entity.NewError(entity.CodeFeeEstimationFailed, "x", 0, nil), http.StatusBadGateway},
		{entity.NewError(entity.CodeNotImplemented, "x", 0, nil), http.StatusNotImplemented},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		is := is.New(t)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, tt.err)
		is.Equal(w.Code, tt.want)
	}
}
