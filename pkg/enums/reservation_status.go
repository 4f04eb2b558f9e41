package enums

import "fmt"

// ReservationStatus tracks the lifecycle of a stock reservation.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusActive,
	ReservationStatusFulfilled,
	ReservationStatusExpired,
	ReservationStatusCancelled,
}

func (s ReservationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known reservation status.
func (s ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the reservation can no longer change.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusFulfilled || s == ReservationStatusExpired || s == ReservationStatusCancelled
}

// ParseReservationStatus converts raw input into ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
