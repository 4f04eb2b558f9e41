package enums

import "testing"

func TestParseTransactionType(t *testing.T) {
	for _, raw := range []string{"stock_in", "stock_out", "adjustment", "reservation", "release", "transfer", "return", "damaged", "expired"} {
		got, err := ParseTransactionType(raw)
		if err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
		if got.String() != raw {
			t.Fatalf("round trip mismatch %q -> %q", raw, got)
		}
	}
	if _, err := ParseTransactionType("restock"); err == nil {
		t.Fatal("expected unknown type to fail")
	}
}

func TestStockUpdateTypeSubset(t *testing.T) {
	if _, err := ParseStockUpdateType("reservation"); err == nil {
		t.Fatal("reservation is not a manual stock update")
	}
	got, err := ParseStockUpdateType("adjustment")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TransactionType() != TransactionTypeAdjustment {
		t.Fatalf("unexpected ledger type %q", got.TransactionType())
	}
}

func TestReservationStatusTerminal(t *testing.T) {
	if ReservationStatusActive.IsTerminal() {
		t.Fatal("active must not be terminal")
	}
	for _, s := range []ReservationStatus{ReservationStatusFulfilled, ReservationStatusExpired, ReservationStatusCancelled} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if _, err := ParseReservationStatus("pending"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestParseNotifierKind(t *testing.T) {
	cases := map[string]NotifierKind{"": NotifierKindHTTP, "PubSub": NotifierKindPubSub, " none ": NotifierKindNone}
	for raw, want := range cases {
		got, err := ParseNotifierKind(raw)
		if err != nil || got != want {
			t.Fatalf("ParseNotifierKind(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseNotifierKind("smtp"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}
