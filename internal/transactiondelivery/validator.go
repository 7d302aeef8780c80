package transactiondelivery

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// ValidKind validates whether the transaction type is incoming or expense.
var ValidKind validator.Func = func(fl validator.FieldLevel) bool {
	if k, ok := fl.Field().Interface().(string); ok {
		return domain.Kind(k).Valid()
	}

	return false
}
