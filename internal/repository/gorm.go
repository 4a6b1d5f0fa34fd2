package repository

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/circuit-mixer/pkg/errors"
)

// GormRunRepository implements RunRepository on a GORM connection.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository wraps a GORM connection.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Migrate creates or updates the history tables.
func (r *GormRunRepository) Migrate() error {
	if err := r.db.AutoMigrate(&MixRun{}, &MixCheckpoint{}); err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "migrating history tables", err)
	}
	return nil
}

// CreateRun inserts a new run row and fills its ID.
func (r *GormRunRepository) CreateRun(ctx context.Context, run *MixRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "creating run", err)
	}
	return nil
}

// UpdateProgress updates the step counters and digest of a run.
func (r *GormRunRepository) UpdateProgress(ctx context.Context, runID int64, stepsDone int64, gateCount int, circuitDigest string) error {
	err := r.db.WithContext(ctx).
		Model(&MixRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"steps_done":     stepsDone,
			"gate_count":     gateCount,
			"circuit_digest": circuitDigest,
		}).Error
	if err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "updating run progress", err)
	}
	return nil
}

// FinishRun marks a run completed or failed.
func (r *GormRunRepository) FinishRun(ctx context.Context, runID int64, status RunStatus, failureReason string) error {
	err := r.db.WithContext(ctx).
		Model(&MixRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"status":         status,
			"failure_reason": failureReason,
		}).Error
	if err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "finishing run", err)
	}
	return nil
}

// GetRunByJobPath returns the most recent run for a job file, or nil when
// none exists.
func (r *GormRunRepository) GetRunByJobPath(ctx context.Context, jobPath string) (*MixRun, error) {
	var run MixRun
	err := r.db.WithContext(ctx).
		Where("job_path = ?", jobPath).
		Order("id DESC").
		First(&run).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "querying run", err)
	}
	return &run, nil
}

// RecordCheckpoint inserts a checkpoint row.
func (r *GormRunRepository) RecordCheckpoint(ctx context.Context, cp *MixCheckpoint) error {
	if err := r.db.WithContext(ctx).Create(cp).Error; err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "recording checkpoint", err)
	}
	return nil
}

// ListCheckpoints returns a run's checkpoints, oldest first.
func (r *GormRunRepository) ListCheckpoints(ctx context.Context, runID int64) ([]MixCheckpoint, error) {
	var cps []MixCheckpoint
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&cps).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "listing checkpoints", err)
	}
	return cps, nil
}
