// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Ame-no-Murakumo/models"
	"gorm.io/gorm"
)

// EncryptionContextRepositoryImpl implements EncryptionContextRepository interface
type EncryptionContextRepositoryImpl struct {
	*BaseRepository[models.EncryptionContext]
}

// NewEncryptionContextRepository creates a new encryption context repository
func NewEncryptionContextRepository(db *gorm.DB) EncryptionContextRepository {
	return &EncryptionContextRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EncryptionContext](db),
	}
}

// Persist strict-inserts a context row. A duplicate (context_id, key_type)
// pair surfaces as a constraint violation.
func (r *EncryptionContextRepositoryImpl) Persist(ctx context.Context, encryptionContext *models.EncryptionContext) error {
	if encryptionContext == nil || encryptionContext.ContextID == 0 {
		return models.ErrMissingAdSelectionID
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

	err = db.Create(encryptionContext).Error
	if err != nil {
		return fmt.Errorf("failed to persist encryption context %d: %w", encryptionContext.ContextID, err)
	}

	return nil
}

// GetContext retrieves one context by (context id, key type); (nil, nil) when
// absent.
func (r *EncryptionContextRepositoryImpl) GetContext(ctx context.Context, contextID int64, keyType int) (*models.EncryptionContext, error) {
	db := r.getDB(ctx)

	var encryptionContext models.EncryptionContext
	err := db.Where("context_id = ? AND key_type = ?", contextID, keyType).
		First(&encryptionContext).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find encryption context %d: %w", contextID, err)
	}

	return &encryptionContext, nil
}

// RemoveExpired deletes contexts created strictly before the cutoff and
// returns how many were removed. A context created exactly at the cutoff
// survives.
func (r *EncryptionContextRepositoryImpl) RemoveExpired(ctx context.Context, before time.Time) (int64, error) {
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

	result := db.Where("creation_instant < ?", before).Delete(&models.EncryptionContext{})
	if result.Error != nil {
		err = result.Error
		return 0, fmt.Errorf("failed to remove expired encryption contexts: %w", result.Error)
	}

	return result.RowsAffected, nil
}
