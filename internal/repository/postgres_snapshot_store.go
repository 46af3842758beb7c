package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/pkg/logger"
	"PortPulse/pkg/postgres"
)

// PostgresSnapshotStore persists portfolio and analytics snapshots via gorm.
// All writes are inserts; a snapshot is never updated after creation.
type PostgresSnapshotStore struct {
	client *postgres.Client
	l      *logger.Logger
}

func NewPostgresSnapshotStore(client *postgres.Client, l *logger.Logger) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{client: client, l: l.With("snapshot_store")}
}

// Init migrates the snapshot tables.
func (s *PostgresSnapshotStore) Init(ctx context.Context) error {
	return s.client.DB().WithContext(ctx).AutoMigrate(
		&models.PortfolioSnapshot{},
		&models.PositionSnapshot{},
		&models.AnalyticsSnapshot{},
	)
}

// SaveSnapshot inserts the snapshot and its positions in one transaction;
// gorm assigns the id on the passed struct.
func (s *PostgresSnapshotStore) SaveSnapshot(ctx context.Context, snap *models.PortfolioSnapshot) error {
	if err := s.client.DB().WithContext(ctx).Create(snap).Error; err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot with positions preloaded,
// or nil when the store is empty.
func (s *PostgresSnapshotStore) LatestSnapshot(ctx context.Context) (*models.PortfolioSnapshot, error) {
	var snap models.PortfolioSnapshot
	err := s.client.DB().WithContext(ctx).
		Preload("Positions").
		Order("id DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &snap, nil
}

// PreviousSnapshot returns the newest snapshot with id < beforeID, or nil
// when none exists.
func (s *PostgresSnapshotStore) PreviousSnapshot(ctx context.Context, beforeID uint) (*models.PortfolioSnapshot, error) {
	var snap models.PortfolioSnapshot
	err := s.client.DB().WithContext(ctx).
		Preload("Positions").
		Where("id < ?", beforeID).
		Order("id DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("previous snapshot: %w", err)
	}
	return &snap, nil
}

// EquityHistory returns up to limit most recent equity values, oldest first.
func (s *PostgresSnapshotStore) EquityHistory(ctx context.Context, limit int) ([]float64, error) {
	var rows []struct {
		ID             uint
		TotalEquityUSD float64
	}
	err := s.client.DB().WithContext(ctx).
		Model(&models.PortfolioSnapshot{}).
		Select("id", "total_equity_usd").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("equity history: %w", err)
	}

	// Rows come newest first; reverse into chronological order.
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.TotalEquityUSD
	}
	return out, nil
}

func (s *PostgresSnapshotStore) SaveAnalytics(ctx context.Context, a *models.AnalyticsSnapshot) error {
	if err := s.client.DB().WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("save analytics: %w", err)
	}
	return nil
}

// LatestAnalytics returns the most recent analytics record, or nil when none
// exists yet.
func (s *PostgresSnapshotStore) LatestAnalytics(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	var a models.AnalyticsSnapshot
	err := s.client.DB().WithContext(ctx).
		Order("id DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest analytics: %w", err)
	}
	return &a, nil
}

func (s *PostgresSnapshotStore) Close() error {
	return s.client.Close()
}

var _ drepo.SnapshotStore = (*PostgresSnapshotStore)(nil)
