// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Ame-no-Murakumo/models"
	"gorm.io/gorm"
)

// AppInstallPermissionRepositoryImpl implements AppInstallPermissionRepository interface
type AppInstallPermissionRepositoryImpl struct {
	*BaseRepository[models.AppInstallPermission]
}

// NewAppInstallPermissionRepository creates a new app install permission repository
func NewAppInstallPermissionRepository(db *gorm.DB) AppInstallPermissionRepository {
	return &AppInstallPermissionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AppInstallPermission](db),
	}
}

// SetAdTechsForPackage atomically replaces the package's permission rows with
// the given buyers. An empty buyer list clears the package entirely.
func (r *AppInstallPermissionRepositoryImpl) SetAdTechsForPackage(ctx context.Context, packageName string, buyers []string) error {
	if packageName == "" {
		return models.ErrMissingCallerPackageName
	}

	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		if err := r.DeleteByPackageName(txCtx, packageName); err != nil {
			return err
		}

		if len(buyers) == 0 {
			return nil
		}

		permissions := make([]*models.AppInstallPermission, 0, len(buyers))
		for _, buyer := range buyers {
			permissions = append(permissions, &models.AppInstallPermission{
				Buyer:       buyer,
				PackageName: packageName,
			})
		}

		return r.SaveBatch(txCtx, permissions)
	})
}

// CanBuyerFilterPackage checks whether the buyer was granted filtering rights
// for the package.
func (r *AppInstallPermissionRepositoryImpl) CanBuyerFilterPackage(ctx context.Context, buyer, packageName string) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.AppInstallPermission{}).
		Where("buyer = ? AND package_name = ?", buyer, packageName).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check app install permission: %w", err)
	}

	return count > 0, nil
}

// GetBuyersForPackage lists the buyers granted filtering rights for a package
func (r *AppInstallPermissionRepositoryImpl) GetBuyersForPackage(ctx context.Context, packageName string) ([]string, error) {
	db := r.getDB(ctx)

	var buyers []string
	err := db.Model(&models.AppInstallPermission{}).
		Where("package_name = ?", packageName).
		Pluck("buyer", &buyers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find buyers for package: %w", err)
	}

	return buyers, nil
}

// DeleteByPackageName removes every permission row for the package.
func (r *AppInstallPermissionRepositoryImpl) DeleteByPackageName(ctx context.Context, packageName string) error {
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

	err = db.Where("package_name = ?", packageName).
		Delete(&models.AppInstallPermission{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete app install permissions for package: %w", err)
	}

	return nil
}
