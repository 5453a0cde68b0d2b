// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Ame-no-Murakumo/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EncryptionKeyRepositoryImpl implements EncryptionKeyRepository interface
type EncryptionKeyRepositoryImpl struct {
	*BaseRepository[models.EncryptionKey]
}

// NewEncryptionKeyRepository creates a new encryption key repository
func NewEncryptionKeyRepository(db *gorm.DB) EncryptionKeyRepository {
	return &EncryptionKeyRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EncryptionKey](db),
	}
}

// Insert upserts one key on its natural key (key_type, coordinator_url,
// key_identifier). A refetched key replaces the stale row rather than
// accumulating next to it. Expiry is recomputed from the TTL on every write.
func (r *EncryptionKeyRepositoryImpl) Insert(ctx context.Context, key *models.EncryptionKey) error {
	if key == nil {
		return models.ErrMissingKeyIdentifier
	}
	if key.CoordinatorURL == "" {
		return models.ErrMissingCoordinatorURL
	}
	if key.KeyIdentifier == "" {
		return models.ErrMissingKeyIdentifier
	}

	key.ComputeExpiry()

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
			{Name: "key_type"},
			{Name: "coordinator_url"},
			{Name: "key_identifier"},
		},
		UpdateAll: true,
	}).Create(key).Error
	if err != nil {
		return fmt.Errorf("failed to insert encryption key: %w", err)
	}

	return nil
}

// InsertAll upserts a batch of keys in one transaction.
func (r *EncryptionKeyRepositoryImpl) InsertAll(ctx context.Context, keys []*models.EncryptionKey) error {
	if len(keys) == 0 {
		return nil
	}

	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		for _, key := range keys {
			if err := r.Insert(txCtx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

// LatestExpiryNKeys returns up to n keys for the type and coordinator ordered
// by freshest expiry first, regardless of whether they are still active.
func (r *EncryptionKeyRepositoryImpl) LatestExpiryNKeys(ctx context.Context, keyType int, coordinatorURL string, n int) ([]*models.EncryptionKey, error) {
	db := r.getDB(ctx)

	var keys []*models.EncryptionKey
	err := db.Where("key_type = ? AND coordinator_url = ?", keyType, coordinatorURL).
		Order("expiry_instant DESC").
		Limit(n).
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find latest expiry encryption keys: %w", err)
	}

	return keys, nil
}

// LatestExpiryNActiveKeys is LatestExpiryNKeys restricted to keys that expire
// strictly after asOf.
func (r *EncryptionKeyRepositoryImpl) LatestExpiryNActiveKeys(ctx context.Context, keyType int, coordinatorURL string, asOf time.Time, n int) ([]*models.EncryptionKey, error) {
	db := r.getDB(ctx)

	var keys []*models.EncryptionKey
	err := db.Where("key_type = ? AND coordinator_url = ? AND expiry_instant > ?", keyType, coordinatorURL, asOf).
		Order("expiry_instant DESC").
		Limit(n).
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find latest expiry active encryption keys: %w", err)
	}

	return keys, nil
}

// ExpiredKeys returns keys of the type and coordinator with
// expiry_instant <= asOf.
func (r *EncryptionKeyRepositoryImpl) ExpiredKeys(ctx context.Context, keyType int, coordinatorURL string, asOf time.Time) ([]*models.EncryptionKey, error) {
	db := r.getDB(ctx)

	var keys []*models.EncryptionKey
	err := db.Where("key_type = ? AND coordinator_url = ? AND expiry_instant <= ?", keyType, coordinatorURL, asOf).
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired encryption keys: %w", err)
	}

	return keys, nil
}

// AllExpiredKeys returns expired keys across every type and coordinator.
func (r *EncryptionKeyRepositoryImpl) AllExpiredKeys(ctx context.Context, asOf time.Time) ([]*models.EncryptionKey, error) {
	db := r.getDB(ctx)

	var keys []*models.EncryptionKey
	err := db.Where("expiry_instant <= ?", asOf).Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find all expired encryption keys: %w", err)
	}

	return keys, nil
}

// DeleteExpiredKeys removes expired keys of one type and coordinator and
// returns how many rows went away.
func (r *EncryptionKeyRepositoryImpl) DeleteExpiredKeys(ctx context.Context, keyType int, coordinatorURL string, asOf time.Time) (int64, error) {
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

	result := db.Where("key_type = ? AND coordinator_url = ? AND expiry_instant <= ?", keyType, coordinatorURL, asOf).
		Delete(&models.EncryptionKey{})
	if result.Error != nil {
		err = result.Error
		return 0, fmt.Errorf("failed to delete expired encryption keys: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteAllExpiredKeys removes every expired key regardless of type or
// coordinator and returns the number deleted.
func (r *EncryptionKeyRepositoryImpl) DeleteAllExpiredKeys(ctx context.Context, asOf time.Time) (int64, error) {
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

	result := db.Where("expiry_instant <= ?", asOf).Delete(&models.EncryptionKey{})
	if result.Error != nil {
		err = result.Error
		return 0, fmt.Errorf("failed to delete all expired encryption keys: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteAll truncates the key table
func (r *EncryptionKeyRepositoryImpl) DeleteAll(ctx context.Context) error {
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

	err = db.Where("1 = 1").Delete(&models.EncryptionKey{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete all encryption keys: %w", err)
	}

	return nil
}
