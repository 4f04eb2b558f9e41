package enums

import "fmt"

// TransactionType classifies an inventory ledger row.
type TransactionType string

const (
	TransactionTypeStockIn     TransactionType = "stock_in"
	TransactionTypeStockOut    TransactionType = "stock_out"
	TransactionTypeAdjustment  TransactionType = "adjustment"
	TransactionTypeReservation TransactionType = "reservation"
	TransactionTypeRelease     TransactionType = "release"
	TransactionTypeTransfer    TransactionType = "transfer"
	TransactionTypeReturn      TransactionType = "return"
	TransactionTypeDamaged     TransactionType = "damaged"
	TransactionTypeExpired     TransactionType = "expired"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeStockIn,
	TransactionTypeStockOut,
	TransactionTypeAdjustment,
	TransactionTypeReservation,
	TransactionTypeRelease,
	TransactionTypeTransfer,
	TransactionTypeReturn,
	TransactionTypeDamaged,
	TransactionTypeExpired,
}

func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value matches a known ledger type.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

// StockUpdateType is the subset of ledger types a manual stock update may use.
type StockUpdateType string

const (
	StockUpdateStockIn    StockUpdateType = "stock_in"
	StockUpdateStockOut   StockUpdateType = "stock_out"
	StockUpdateAdjustment StockUpdateType = "adjustment"
)

func (t StockUpdateType) IsValid() bool {
	switch t {
	case StockUpdateStockIn, StockUpdateStockOut, StockUpdateAdjustment:
		return true
	}
	return false
}

// TransactionType returns the ledger type recorded for the update.
func (t StockUpdateType) TransactionType() TransactionType {
	return TransactionType(t)
}

func ParseStockUpdateType(value string) (StockUpdateType, error) {
	t := StockUpdateType(value)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid stock update type %q", value)
	}
	return t, nil
}
