package dto

import (
	"math/big"
	"regexp"

	"token-ledger/internal/core/domain"
	"token-ledger/pkg/apperror"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	principalHexRe = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{40}$`)
	amountStringRe = regexp.MustCompile(`^[0-9]+$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("principal_hex", validatePrincipalHex)
		_ = v.RegisterValidation("amount_string", validateAmountString)
	}
}

// validatePrincipalHex accepts a 20-byte hex address, optionally 0x-prefixed.
func validatePrincipalHex(fl validator.FieldLevel) bool {
	return principalHexRe.MatchString(fl.Field().String())
}

// validateAmountString accepts an unsigned base-10 integer of any magnitude.
func validateAmountString(fl validator.FieldLevel) bool {
	return amountStringRe.MatchString(fl.Field().String())
}

// ParsePrincipal converts a request address field to a domain principal,
// mapping parse failures to a validation error.
func ParsePrincipal(s string) (domain.Principal, error) {
	p, err := domain.ParsePrincipal(s)
	if err != nil {
		return domain.ZeroPrincipal, apperror.Validation("invalid address: " + err.Error())
	}
	return p, nil
}

// ParseAmount converts a request amount field to a big integer, mapping
// parse failures to a validation error.
func ParseAmount(s string) (*big.Int, error) {
	amount, err := domain.ParseAmount(s)
	if err != nil {
		return nil, apperror.Validation("invalid amount: " + err.Error())
	}
	return amount, nil
}
