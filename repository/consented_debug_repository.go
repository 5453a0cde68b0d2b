// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Ame-no-Murakumo/models"
	"gorm.io/gorm"
)

// ConsentedDebugConfigurationRepositoryImpl implements ConsentedDebugConfigurationRepository interface
type ConsentedDebugConfigurationRepositoryImpl struct {
	*BaseRepository[models.ConsentedDebugConfiguration]
}

// NewConsentedDebugConfigurationRepository creates a new consented debug configuration repository
func NewConsentedDebugConfigurationRepository(db *gorm.DB) ConsentedDebugConfigurationRepository {
	return &ConsentedDebugConfigurationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ConsentedDebugConfiguration](db),
	}
}

// Persist inserts a configuration without touching existing rows
func (r *ConsentedDebugConfigurationRepositoryImpl) Persist(ctx context.Context, configuration *models.ConsentedDebugConfiguration) error {
	if configuration == nil || configuration.DebugToken == "" {
		return models.ErrMissingDebugToken
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Create(configuration).Error
	if err != nil {
		return fmt.Errorf("failed to persist consented debug configuration: %w", err)
	}

	return nil
}

// GetActive returns consented, unexpired configurations as of the instant,
// most recently created first, capped at limit.
func (r *ConsentedDebugConfigurationRepositoryImpl) GetActive(ctx context.Context, asOf time.Time, limit int) ([]*models.ConsentedDebugConfiguration, error) {
	db := r.getDB(ctx)

	var configurations []*models.ConsentedDebugConfiguration
	err := db.Where("is_consent_provided = ? AND expiry_timestamp > ?", true, asOf).
		Order("creation_timestamp DESC").
		Limit(limit).
		Find(&configurations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active consented debug configurations: %w", err)
	}

	return configurations, nil
}

// DeleteExistingThenPersist atomically replaces whatever configurations exist
// with the given one, keeping the table at a single row.
func (r *ConsentedDebugConfigurationRepositoryImpl) DeleteExistingThenPersist(ctx context.Context, configuration *models.ConsentedDebugConfiguration) error {
	if configuration == nil || configuration.DebugToken == "" {
		return models.ErrMissingDebugToken
	}

	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		if err := r.DeleteAll(txCtx); err != nil {
			return err
		}
		return r.Persist(txCtx, configuration)
	})
}

// DeleteExpired removes configurations whose expiry is at or before the
// instant and returns how many were removed.
func (r *ConsentedDebugConfigurationRepositoryImpl) DeleteExpired(ctx context.Context, asOf time.Time) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Where("expiry_timestamp <= ?", asOf).Delete(&models.ConsentedDebugConfiguration{})
	if result.Error != nil {
		err = result.Error
		return 0, fmt.Errorf("failed to delete expired consented debug configurations: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteAll truncates the configuration table
func (r *ConsentedDebugConfigurationRepositoryImpl) DeleteAll(ctx context.Context) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("1 = 1").Delete(&models.ConsentedDebugConfiguration{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete all consented debug configurations: %w", err)
	}

	return nil
}
