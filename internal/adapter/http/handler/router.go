package handler

import (
	"token-ledger/internal/adapter/http/middleware"
	"token-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	DebugAuth      bool // expose the token-issuing endpoint (dev only)
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies the configured backends)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API v1 routes
	v1 := r.Group("/api/v1")

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)

	// --- Public reads ---
	reads := v1.Group("/ledger")
	{
		reads.GET("/balances/:address", ledgerHandler.GetBalance)
		reads.GET("/supply", ledgerHandler.GetTotalSupply)
	}

	// --- Authenticated mutations ---
	auth := middleware.PrincipalAuth(deps.TokenSvc, deps.Logger)
	mutations := v1.Group("/ledger", auth)
	{
		mutations.POST("/init", ledgerHandler.Init)
		mutations.POST("/transfer", ledgerHandler.Transfer)
		mutations.POST("/mint", ledgerHandler.Mint)
		mutations.POST("/burn", ledgerHandler.Burn)
	}

	// --- Development token issuance ---
	if deps.DebugAuth {
		authHandler := NewAuthHandler(deps.TokenSvc)
		v1.POST("/auth/token", authHandler.IssueToken)
	}

	return r
}
