package cron

import (
	"context"
	"fmt"
)

type reservationExpirer interface {
	ExpireReservations(ctx context.Context) (int, error)
}

// NewReservationExpiryJob builds the sweep that releases reservations past
// their expiry. Rows expired before a failure still count as processed.
func NewReservationExpiryJob(inventory reservationExpirer) (Job, error) {
	if inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &reservationExpiryJob{inventory: inventory}, nil
}

type reservationExpiryJob struct {
	inventory reservationExpirer
}

func (j *reservationExpiryJob) Name() string { return "reservation-expiry" }

func (j *reservationExpiryJob) Run(ctx context.Context) (Result, error) {
	expired, err := j.inventory.ExpireReservations(ctx)
	if err != nil {
		return Result{Processed: expired}, fmt.Errorf("reservation expiry: %w", err)
	}
	return Result{Processed: expired}, nil
}
