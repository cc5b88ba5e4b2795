package restapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
)

// APIPortfolioResponse is the body of both portfolio endpoints.
type APIPortfolioResponse struct {
	Data struct {
		Portfolio entity.Portfolio          `json:"portfolio"`
		AssetsMap map[string][]entity.Asset `json:"assetsMap"`
		UpdatedAt *time.Time                `json:"updatedAt,omitempty"`
	} `json:"data"`
	ServiceErrors []entity.PortfolioError `json:"service_errors,omitempty"`
	StatusMessage string                  `json:"status_message"`
}

// PortfolioRequest lists the addresses to aggregate. No keys are accepted.
type PortfolioRequest struct {
	Wallets []entity.WatchedAddress `json:"wallets" binding:"required"`
}

// PortfolioHandler serves on-demand portfolios and the result of the last
// background refresh.
type PortfolioHandler struct {
	portfolioService port.PortfolioService
	registry         port.ChainRegistry
	logger           port.Logger

	mu        sync.RWMutex
	latest    *entity.RefreshResult
	updatedAt time.Time
}

func NewPortfolioHandler(ps port.PortfolioService, registry port.ChainRegistry, logger port.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: ps, registry: registry, logger: logger}
}

// Publish stores res as the latest background refresh.
func (h *PortfolioHandler) Publish(res entity.RefreshResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = &res
	h.updatedAt = time.Now().UTC()
}

// GetPortfolioHandler returns the last background refresh.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	h.mu.RLock()
	latest, updatedAt := h.latest, h.updatedAt
	h.mu.RUnlock()

	if latest == nil {
		var response APIPortfolioResponse
		response.Data.Portfolio = entity.Portfolio{}
		response.Data.AssetsMap = map[string][]entity.Asset{}
		response.StatusMessage = "No refresh has completed yet."
		c.JSON(http.StatusOK, response)
		return
	}
	response := buildPortfolioResponse(*latest, nil)
	response.Data.UpdatedAt = &updatedAt
	c.JSON(http.StatusOK, response)
}

// PostPortfolioHandler aggregates the posted addresses. Entries on unknown
// chains are reported in service_errors and left out.
func (h *PortfolioHandler) PostPortfolioHandler(c *gin.Context) {
	var req PortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	wallets := make([]entity.WalletInfo, 0, len(req.Wallets))
	var rejected []entity.PortfolioError
	for _, w := range req.Wallets {
		chain, ok := h.registry.ByID(strings.ToLower(strings.TrimSpace(w.ChainID)))
		if !ok {
			rejected = append(rejected, entity.PortfolioError{ChainID: w.ChainID, WalletAddress: w.Address, Message: "unknown chain"})
			continue
		}
		wallets = append(wallets, entity.WalletInfo{Chain: chain, Address: strings.TrimSpace(w.Address)})
	}

	res := h.portfolioService.RefreshNow(c.Request.Context(), wallets)
	c.JSON(http.StatusOK, buildPortfolioResponse(res, rejected))
}

func buildPortfolioResponse(res entity.RefreshResult, extra []entity.PortfolioError) APIPortfolioResponse {
	var response APIPortfolioResponse
	response.Data.Portfolio = res.Portfolio
	response.Data.AssetsMap = res.AssetsMap
	response.ServiceErrors = append(append([]entity.PortfolioError(nil), extra...), res.Errors...)

	switch {
	case len(response.ServiceErrors) > 0 && len(res.Portfolio) == 0:
		response.StatusMessage = "Failed to retrieve any balances due to service errors."
	case len(response.ServiceErrors) > 0:
		response.StatusMessage = "Portfolio retrieved. Some wallets may have encountered errors."
	case len(res.Portfolio) == 0:
		response.StatusMessage = "No positive balances found."
	default:
		response.StatusMessage = "Portfolio retrieved successfully."
	}
	return response
}
