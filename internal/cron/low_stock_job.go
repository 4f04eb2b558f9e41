package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/angelmondragon/inventory-service/pkg/logger"
)

const defaultLowStockInterval = time.Hour

type lowStockReporter interface {
	GetLowStockItems(ctx context.Context, threshold *int) ([]models.InventoryItem, error)
	SendLowStockAlerts(ctx context.Context, items []models.InventoryItem) (int, error)
}

type runMarkerStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// LowStockReportJobParams configure the low-stock report.
type LowStockReportJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockReporter
	// Interval is the report cadence; ticks arriving earlier are skipped.
	Interval time.Duration
	// Notify sends one alert per low-stock item when set.
	Notify bool
	// Store and MarkerKey share the last report time between workers.
	// Without a store the time is kept in process.
	Store     runMarkerStore
	MarkerKey string
}

// NewLowStockReportJob builds the job that reports items needing restock.
func NewLowStockReportJob(params LowStockReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Store != nil && params.MarkerKey == "" {
		return nil, fmt.Errorf("marker key required with a store")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultLowStockInterval
	}
	return &lowStockReportJob{
		logg:      params.Logger,
		inventory: params.Inventory,
		interval:  interval,
		notify:    params.Notify,
		store:     params.Store,
		markerKey: params.MarkerKey,
		now:       time.Now,
	}, nil
}

type lowStockReportJob struct {
	logg      *logger.Logger
	inventory lowStockReporter
	interval  time.Duration
	notify    bool
	store     runMarkerStore
	markerKey string
	now       func() time.Time
	lastRun   time.Time
}

func (j *lowStockReportJob) Name() string { return "low-stock-report" }

func (j *lowStockReportJob) Run(ctx context.Context) (Result, error) {
	now := j.now().UTC()
	last, err := j.lastReport(ctx)
	if err != nil {
		return Result{}, err
	}
	if !last.IsZero() && now.Sub(last) < j.interval {
		return Result{Skipped: true}, nil
	}

	items, err := j.inventory.GetLowStockItems(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("low stock report: %w", err)
	}
	j.markReported(ctx, now)
	result := Result{Processed: len(items)}

	skus := make([]string, 0, len(items))
	for _, item := range items {
		skus = append(skus, item.SKU)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"low_stock_items": len(items),
		"skus":            skus,
	})
	if len(items) == 0 {
		j.logg.Info(logCtx, "no items need restocking")
		return result, nil
	}
	j.logg.Warn(logCtx, "items need restocking")

	if !j.notify {
		return result, nil
	}
	sent, err := j.inventory.SendLowStockAlerts(ctx, items)
	j.logg.Info(j.logg.WithField(logCtx, "alerts_sent", sent), "low stock alerts dispatched")
	if err != nil {
		return result, fmt.Errorf("low stock alerts: %w", err)
	}
	return result, nil
}

func (j *lowStockReportJob) lastReport(ctx context.Context) (time.Time, error) {
	if j.store == nil {
		return j.lastRun, nil
	}
	raw, err := j.store.Get(ctx, j.markerKey)
	if errors.Is(err, goredis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last low stock report: %w", err)
	}
	last, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "marker", raw), "ignoring unreadable low stock report marker")
		return time.Time{}, nil
	}
	return last, nil
}

// markReported records the run. A failed write only means another worker
// may report again before the interval is up.
func (j *lowStockReportJob) markReported(ctx context.Context, at time.Time) {
	j.lastRun = at
	if j.store == nil {
		return
	}
	if err := j.store.Set(ctx, j.markerKey, at.Format(time.RFC3339Nano), 2*j.interval); err != nil {
		j.logg.Error(ctx, "failed to record low stock report time", err)
	}
}
