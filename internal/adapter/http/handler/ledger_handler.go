package handler

import (
	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/adapter/http/middleware"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"
	"token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler handles ledger endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// Init handles POST /api/v1/ledger/init.
func (h *LedgerHandler) Init(c *gin.Context) {
	caller, ok := middleware.CallerPrincipal(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	initialSupply, err := dto.ParseAmount(req.InitialSupply)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.ledgerSvc.Init(c.Request.Context(), caller, initialSupply); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.OperationResponse{Operation: "init", Caller: caller.Hex()})
}

// Transfer handles POST /api/v1/ledger/transfer.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	caller, ok := middleware.CallerPrincipal(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	to, err := dto.ParsePrincipal(req.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.ledgerSvc.Transfer(c.Request.Context(), caller, to, amount); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.OperationResponse{Operation: "transfer", Caller: caller.Hex()})
}

// Mint handles POST /api/v1/ledger/mint.
func (h *LedgerHandler) Mint(c *gin.Context) {
	caller, ok := middleware.CallerPrincipal(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	to, err := dto.ParsePrincipal(req.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.ledgerSvc.Mint(c.Request.Context(), caller, to, amount); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.OperationResponse{Operation: "mint", Caller: caller.Hex()})
}

// Burn handles POST /api/v1/ledger/burn.
func (h *LedgerHandler) Burn(c *gin.Context) {
	caller, ok := middleware.CallerPrincipal(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.BurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.ledgerSvc.Burn(c.Request.Context(), caller, amount); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.OperationResponse{Operation: "burn", Caller: caller.Hex()})
}

// GetBalance handles GET /api/v1/ledger/balances/:address.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	address, err := dto.ParsePrincipal(c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.ledgerSvc.GetBalance(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Address: address.Hex(),
		Balance: balance.String(),
	})
}

// GetTotalSupply handles GET /api/v1/ledger/supply.
func (h *LedgerHandler) GetTotalSupply(c *gin.Context) {
	supply, err := h.ledgerSvc.GetTotalSupply(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SupplyResponse{TotalSupply: supply.String()})
}
