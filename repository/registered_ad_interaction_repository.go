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

// RegisteredAdInteractionRepositoryImpl implements RegisteredAdInteractionRepository interface
type RegisteredAdInteractionRepositoryImpl struct {
	*BaseRepository[models.RegisteredAdInteraction]
}

// NewRegisteredAdInteractionRepository creates a new registered ad interaction repository
func NewRegisteredAdInteractionRepository(db *gorm.DB) RegisteredAdInteractionRepository {
	return &RegisteredAdInteractionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RegisteredAdInteraction](db),
	}
}

// Register bulk-upserts interactions, overwriting on composite-key collision.
func (r *RegisteredAdInteractionRepositoryImpl) Register(ctx context.Context, interactions []*models.RegisteredAdInteraction) error {
	if len(interactions) == 0 {
		return nil
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
			{Name: "ad_selection_id"},
			{Name: "interaction_key"},
			{Name: "destination"},
		},
		UpdateAll: true,
	}).CreateInBatches(interactions, 100).Error
	if err != nil {
		return fmt.Errorf("failed to register ad interactions: %w", err)
	}

	return nil
}

// RegisterSafely commits the longest prefix of the batch that keeps both the
// total-table count and the per-(id, destination) count under their caps;
// the rest is silently dropped. Count checks and inserts share one
// transaction so concurrent writers cannot interleave between them. Callers
// learn what survived only by querying afterwards.
func (r *RegisteredAdInteractionRepositoryImpl) RegisterSafely(ctx context.Context, adSelectionID int64, interactions []*models.RegisteredAdInteraction, maxTableSize, maxPerDestination int64, destination int) error {
	if len(interactions) == 0 {
		return nil
	}

	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		total, err := r.Count(txCtx)
		if err != nil {
			return err
		}
		if total >= maxTableSize {
			return nil
		}

		perDestination, err := r.CountPerDestination(txCtx, adSelectionID, destination)
		if err != nil {
			return err
		}
		if perDestination >= maxPerDestination {
			return nil
		}

		availableInTable := maxTableSize - total
		availablePerDestination := maxPerDestination - perDestination

		numToCommit := int64(len(interactions))
		if availableInTable < numToCommit {
			numToCommit = availableInTable
		}
		if availablePerDestination < numToCommit {
			numToCommit = availablePerDestination
		}

		return r.Register(txCtx, interactions[:numToCommit])
	})
}

// List returns the interactions registered for an id and destination; empty
// when nothing is registered.
func (r *RegisteredAdInteractionRepositoryImpl) List(ctx context.Context, adSelectionID int64, destination int) ([]*models.RegisteredAdInteraction, error) {
	db := r.getDB(ctx)

	var interactions []*models.RegisteredAdInteraction
	err := db.Where("ad_selection_id = ? AND destination = ?", adSelectionID, destination).
		Find(&interactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list registered ad interactions: %w", err)
	}

	return interactions, nil
}

// GetURI returns the reporting URI for one registration, empty when absent.
func (r *RegisteredAdInteractionRepositoryImpl) GetURI(ctx context.Context, adSelectionID int64, interactionKey string, destination int) (string, error) {
	db := r.getDB(ctx)

	var interaction models.RegisteredAdInteraction
	err := db.Where("ad_selection_id = ? AND interaction_key = ? AND destination = ?",
		adSelectionID, interactionKey, destination).
		First(&interaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find registered ad interaction uri: %w", err)
	}

	return interaction.InteractionReportingURI, nil
}

// Exists checks for one registration by its full composite key.
func (r *RegisteredAdInteractionRepositoryImpl) Exists(ctx context.Context, adSelectionID int64, interactionKey string, destination int) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.RegisteredAdInteraction{}).
		Where("ad_selection_id = ? AND interaction_key = ? AND destination = ?",
			adSelectionID, interactionKey, destination).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check registered ad interaction existence: %w", err)
	}

	return count > 0, nil
}

// Count returns the total number of registrations across all ids and
// destinations, used as a cheap capacity probe.
func (r *RegisteredAdInteractionRepositoryImpl) Count(ctx context.Context) (int64, error) {
	return r.CountAll(ctx)
}

// CountPerDestination counts registrations for one id and destination.
func (r *RegisteredAdInteractionRepositoryImpl) CountPerDestination(ctx context.Context, adSelectionID int64, destination int) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.RegisteredAdInteraction{}).
		Where("ad_selection_id = ? AND destination = ?", adSelectionID, destination).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count registered ad interactions per destination: %w", err)
	}

	return count, nil
}

// RemoveExpired deletes registrations whose ad selection id no longer exists
// in the legacy table. Interactions have no timestamp of their own; their
// lifetime is the ad selection's.
func (r *RegisteredAdInteractionRepositoryImpl) RemoveExpired(ctx context.Context) error {
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

	err = db.Exec(
		"DELETE FROM registered_ad_interactions WHERE ad_selection_id NOT IN " +
			"(SELECT ad_selection_id FROM ad_selection)",
	).Error
	if err != nil {
		return fmt.Errorf("failed to remove expired registered ad interactions: %w", err)
	}

	return nil
}

// RemoveExpiredFromUnifiedTable deletes registrations whose ad selection id
// is absent from the unified initialization table.
func (r *RegisteredAdInteractionRepositoryImpl) RemoveExpiredFromUnifiedTable(ctx context.Context) error {
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

	err = db.Exec(
		"DELETE FROM registered_ad_interactions WHERE ad_selection_id NOT IN " +
			"(SELECT ad_selection_id FROM ad_selection_initialization)",
	).Error
	if err != nil {
		return fmt.Errorf("failed to remove expired registered ad interactions from unified table: %w", err)
	}

	return nil
}
