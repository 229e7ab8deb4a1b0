package dto

// InitRequest is the request body for the one-time ledger initialization.
type InitRequest struct {
	InitialSupply string `json:"initial_supply" binding:"required,amount_string"`
}

// TransferRequest is the request body for a balance transfer.
type TransferRequest struct {
	To     string `json:"to" binding:"required,principal_hex"`
	Amount string `json:"amount" binding:"required,amount_string"`
}

// MintRequest is the request body for owner-restricted supply creation.
type MintRequest struct {
	To     string `json:"to" binding:"required,principal_hex"`
	Amount string `json:"amount" binding:"required,amount_string"`
}

// BurnRequest is the request body for destroying caller-held tokens.
type BurnRequest struct {
	Amount string `json:"amount" binding:"required,amount_string"`
}

// TokenRequest is the request body for development token issuance.
type TokenRequest struct {
	PublicKey string `json:"public_key" binding:"required"` // hex-encoded public key
}

// TokenResponse is the response body for successful token issuance.
type TokenResponse struct {
	Token     string `json:"token"`
	Principal string `json:"principal"`
	Expiry    int64  `json:"expiry"` // Unix timestamp
}

// OperationResponse acknowledges a committed ledger mutation.
type OperationResponse struct {
	Operation string `json:"operation"`
	Caller    string `json:"caller"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"` // base-10 integer string
}

// SupplyResponse is the response for the total supply query.
type SupplyResponse struct {
	TotalSupply string `json:"total_supply"` // base-10 integer string
}
