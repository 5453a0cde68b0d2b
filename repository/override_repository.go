// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Ame-no-Murakumo/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OverrideRepositoryImpl implements OverrideRepository interface
type OverrideRepositoryImpl struct {
	*BaseRepository[models.AdSelectionOverride]
}

// NewOverrideRepository creates a new developer override repository
func NewOverrideRepository(db *gorm.DB) OverrideRepository {
	return &OverrideRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdSelectionOverride](db),
	}
}

// PersistAdSelectionOverride replaces on (config id, package) collision, so a
// developer re-running setup sees their latest logic.
func (r *OverrideRepositoryImpl) PersistAdSelectionOverride(ctx context.Context, override *models.AdSelectionOverride) error {
	if override == nil || override.AdSelectionConfigID == "" || override.AppPackageName == "" {
		return models.ErrMissingCallerPackageName
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

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "ad_selection_config_id"},
			{Name: "app_package_name"},
		},
		UpdateAll: true,
	}).Create(override).Error
	if err != nil {
		return fmt.Errorf("failed to persist ad selection override: %w", err)
	}

	return nil
}

// PersistBuyerDecisionOverride replaces on (config id, buyer, package)
// collision.
func (r *OverrideRepositoryImpl) PersistBuyerDecisionOverride(ctx context.Context, override *models.BuyerDecisionOverride) error {
	if override == nil || override.AdSelectionConfigID == "" || override.AppPackageName == "" {
		return models.ErrMissingCallerPackageName
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

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "ad_selection_config_id"},
			{Name: "buyer"},
			{Name: "app_package_name"},
		},
		UpdateAll: true,
	}).Create(override).Error
	if err != nil {
		return fmt.Errorf("failed to persist buyer decision override: %w", err)
	}

	return nil
}

// PersistFromOutcomesOverride replaces on (config id, package) collision.
func (r *OverrideRepositoryImpl) PersistFromOutcomesOverride(ctx context.Context, override *models.AdSelectionFromOutcomesOverride) error {
	if override == nil || override.AdSelectionFromOutcomesConfigID == "" || override.AppPackageName == "" {
		return models.ErrMissingCallerPackageName
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

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "ad_selection_from_outcomes_config_id"},
			{Name: "app_package_name"},
		},
		UpdateAll: true,
	}).Create(override).Error
	if err != nil {
		return fmt.Errorf("failed to persist from-outcomes override: %w", err)
	}

	return nil
}

// AdSelectionOverrideExists checks for an override by config id and package
func (r *OverrideRepositoryImpl) AdSelectionOverrideExists(ctx context.Context, configID, appPackageName string) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.AdSelectionOverride{}).
		Where("ad_selection_config_id = ? AND app_package_name = ?", configID, appPackageName).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ad selection override existence: %w", err)
	}

	return count > 0, nil
}

// FromOutcomesOverrideExists checks for a from-outcomes override by config id and package
func (r *OverrideRepositoryImpl) FromOutcomesOverrideExists(ctx context.Context, configID, appPackageName string) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.AdSelectionFromOutcomesOverride{}).
		Where("ad_selection_from_outcomes_config_id = ? AND app_package_name = ?", configID, appPackageName).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check from-outcomes override existence: %w", err)
	}

	return count > 0, nil
}

// GetDecisionLogicOverride returns the decision logic for the scope, empty
// when no override is set. Overrides from other packages never leak.
func (r *OverrideRepositoryImpl) GetDecisionLogicOverride(ctx context.Context, configID, appPackageName string) (string, error) {
	override, err := r.getAdSelectionOverride(ctx, configID, appPackageName)
	if err != nil || override == nil {
		return "", err
	}
	return override.DecisionLogicJS, nil
}

// GetTrustedScoringSignalsOverride returns the scoring signals for the scope,
// empty when no override is set.
func (r *OverrideRepositoryImpl) GetTrustedScoringSignalsOverride(ctx context.Context, configID, appPackageName string) (string, error) {
	override, err := r.getAdSelectionOverride(ctx, configID, appPackageName)
	if err != nil || override == nil {
		return "", err
	}
	return override.TrustedScoringSignals, nil
}

func (r *OverrideRepositoryImpl) getAdSelectionOverride(ctx context.Context, configID, appPackageName string) (*models.AdSelectionOverride, error) {
	db := r.getDB(ctx)

	var override models.AdSelectionOverride
	err := db.Where("ad_selection_config_id = ? AND app_package_name = ?", configID, appPackageName).
		First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ad selection override: %w", err)
	}

	return &override, nil
}

// GetBuyerDecisionOverrides returns all per-buyer overrides for the scope
func (r *OverrideRepositoryImpl) GetBuyerDecisionOverrides(ctx context.Context, configID, appPackageName string) ([]*models.BuyerDecisionOverride, error) {
	db := r.getDB(ctx)

	var overrides []*models.BuyerDecisionOverride
	err := db.Where("ad_selection_config_id = ? AND app_package_name = ?", configID, appPackageName).
		Find(&overrides).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find buyer decision overrides: %w", err)
	}

	return overrides, nil
}

// GetSelectionLogicOverride returns the from-outcomes selection logic for the
// scope, empty when no override is set.
func (r *OverrideRepositoryImpl) GetSelectionLogicOverride(ctx context.Context, configID, appPackageName string) (string, error) {
	override, err := r.getFromOutcomesOverride(ctx, configID, appPackageName)
	if err != nil || override == nil {
		return "", err
	}
	return override.SelectionLogicJS, nil
}

// GetSelectionSignalsOverride returns the from-outcomes selection signals for
// the scope, empty when no override is set.
func (r *OverrideRepositoryImpl) GetSelectionSignalsOverride(ctx context.Context, configID, appPackageName string) (string, error) {
	override, err := r.getFromOutcomesOverride(ctx, configID, appPackageName)
	if err != nil || override == nil {
		return "", err
	}
	return override.SelectionSignals, nil
}

func (r *OverrideRepositoryImpl) getFromOutcomesOverride(ctx context.Context, configID, appPackageName string) (*models.AdSelectionFromOutcomesOverride, error) {
	db := r.getDB(ctx)

	var override models.AdSelectionFromOutcomesOverride
	err := db.Where("ad_selection_from_outcomes_config_id = ? AND app_package_name = ?", configID, appPackageName).
		First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find from-outcomes override: %w", err)
	}

	return &override, nil
}

// RemoveAdSelectionOverride deletes one override; absent scopes are a no-op.
func (r *OverrideRepositoryImpl) RemoveAdSelectionOverride(ctx context.Context, configID, appPackageName string) error {
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

	err = db.Where("ad_selection_config_id = ? AND app_package_name = ?", configID, appPackageName).
		Delete(&models.AdSelectionOverride{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove ad selection override: %w", err)
	}

	return nil
}

// RemoveBuyerDecisionOverrides deletes every buyer's override for the scope.
func (r *OverrideRepositoryImpl) RemoveBuyerDecisionOverrides(ctx context.Context, configID, appPackageName string) error {
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

	err = db.Where("ad_selection_config_id = ? AND app_package_name = ?", configID, appPackageName).
		Delete(&models.BuyerDecisionOverride{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove buyer decision overrides: %w", err)
	}

	return nil
}

// RemoveFromOutcomesOverride deletes one from-outcomes override.
func (r *OverrideRepositoryImpl) RemoveFromOutcomesOverride(ctx context.Context, configID, appPackageName string) error {
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

	err = db.Where("ad_selection_from_outcomes_config_id = ? AND app_package_name = ?", configID, appPackageName).
		Delete(&models.AdSelectionFromOutcomesOverride{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove from-outcomes override: %w", err)
	}

	return nil
}

// RemoveAllOverridesForPackage deletes every override the package ever set,
// across all three override tables, in one transaction.
func (r *OverrideRepositoryImpl) RemoveAllOverridesForPackage(ctx context.Context, appPackageName string) error {
	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		db := r.getDB(txCtx)

		if err := db.Where("app_package_name = ?", appPackageName).
			Delete(&models.AdSelectionOverride{}).Error; err != nil {
			return fmt.Errorf("failed to remove ad selection overrides for package: %w", err)
		}
		if err := db.Where("app_package_name = ?", appPackageName).
			Delete(&models.BuyerDecisionOverride{}).Error; err != nil {
			return fmt.Errorf("failed to remove buyer decision overrides for package: %w", err)
		}
		if err := db.Where("app_package_name = ?", appPackageName).
			Delete(&models.AdSelectionFromOutcomesOverride{}).Error; err != nil {
			return fmt.Errorf("failed to remove from-outcomes overrides for package: %w", err)
		}

		return nil
	})
}
