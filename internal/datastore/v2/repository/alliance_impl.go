package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

type allianceRepository struct {
	db *gorm.DB
}

// NewAllianceRepository creates a new AllianceRepository.
func NewAllianceRepository(db *gorm.DB) AllianceRepository {
	return &allianceRepository{db: db}
}

func (r *allianceRepository) ListTrainInstances(ctx context.Context, from, to time.Time) ([]entities.TrainInstance, error) {
	var rows []entities.TrainInstance
	err := r.db.WithContext(ctx).
		Where("is_archived = ? AND date >= ? AND date < ?", false, from.UTC(), to.UTC()).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list train instances: %w", err)
	}
	return rows, nil
}

func (r *allianceRepository) ListDepartingTrains(ctx context.Context) ([]entities.TrainInstance, error) {
	var rows []entities.TrainInstance
	err := r.db.WithContext(ctx).
		Preload("Conductor").
		Where("is_archived = ?", false).
		Where("status IN ?", []string{entities.TrainScheduled, entities.TrainBoarding}).
		Where("conductor_id IS NOT NULL").
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list departing trains: %w", err)
	}
	return rows, nil
}

func (r *allianceRepository) ListTrainSlots(ctx context.Context) ([]entities.TrainSlot, error) {
	var rows []entities.TrainSlot
	if err := r.db.WithContext(ctx).Preload("Conductor").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list train slots: %w", err)
	}
	return rows, nil
}

func (r *allianceRepository) ListActiveMembers(ctx context.Context) ([]entities.Member, error) {
	var rows []entities.Member
	if err := r.db.WithContext(ctx).Where("status = ?", entities.MemberActive).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}
	return rows, nil
}

func (r *allianceRepository) ListIdleMembers(ctx context.Context, cutoff time.Time) ([]entities.Member, error) {
	var rows []entities.Member
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_active < ?", entities.MemberActive, cutoff.UTC()).
		Order("last_active ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list idle members: %w", err)
	}
	return rows, nil
}

func (r *allianceRepository) ListEventsStarting(ctx context.Context, from, to time.Time) ([]entities.Event, error) {
	var rows []entities.Event
	err := r.db.WithContext(ctx).
		Where("start_date >= ? AND start_date <= ?", from.UTC(), to.UTC()).
		Order("start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	return rows, nil
}
