// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Ame-no-Murakumo/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdSelectionRepositoryImpl implements AdSelectionRepository interface
type AdSelectionRepositoryImpl struct {
	*BaseRepository[models.AdSelection]
}

// NewAdSelectionRepository creates a new ad selection repository
func NewAdSelectionRepository(db *gorm.DB) AdSelectionRepository {
	return &AdSelectionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdSelection](db),
	}
}

// Persist validates and strict-inserts a record. Validation failures never
// reach storage; a duplicate ad selection id surfaces as a constraint
// violation from the engine.
func (r *AdSelectionRepositoryImpl) Persist(ctx context.Context, adSelection *models.AdSelection) error {
	if err := models.ValidateAdSelection(adSelection); err != nil {
		return err
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

	err = db.Create(adSelection).Error
	if err != nil {
		return fmt.Errorf("failed to persist ad selection %d: %w", adSelection.AdSelectionID, err)
	}

	return nil
}

// PersistBuyerDecisionLogic upserts on bidding_logic_uri, last write wins.
func (r *AdSelectionRepositoryImpl) PersistBuyerDecisionLogic(ctx context.Context, decisionLogic *models.BuyerDecisionLogic) error {
	if decisionLogic == nil || decisionLogic.BiddingLogicURI == "" {
		return models.ErrMissingBiddingLogicURI
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
		Columns:   []clause.Column{{Name: "bidding_logic_uri"}},
		UpdateAll: true,
	}).Create(decisionLogic).Error
	if err != nil {
		return fmt.Errorf("failed to persist buyer decision logic: %w", err)
	}

	return nil
}

// Exists checks the legacy table only; records living in the unified
// initialization table are invisible here.
func (r *AdSelectionRepositoryImpl) Exists(ctx context.Context, adSelectionID int64) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.AdSelection{}).
		Where("ad_selection_id = ?", adSelectionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ad selection existence: %w", err)
	}

	return count > 0, nil
}

// BuyerDecisionLogicExists checks for a decision logic row by URI
func (r *AdSelectionRepositoryImpl) BuyerDecisionLogicExists(ctx context.Context, biddingLogicURI string) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.BuyerDecisionLogic{}).
		Where("bidding_logic_uri = ?", biddingLogicURI).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check buyer decision logic existence: %w", err)
	}

	return count > 0, nil
}

// GetByID retrieves the raw record without the decision logic join
func (r *AdSelectionRepositoryImpl) GetByID(ctx context.Context, adSelectionID int64) (*models.AdSelection, error) {
	db := r.getDB(ctx)

	var adSelection models.AdSelection
	err := db.Where("ad_selection_id = ?", adSelectionID).First(&adSelection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ad selection by id %d: %w", adSelectionID, err)
	}

	return &adSelection, nil
}

// GetEntryByID joins the record with its buyer decision logic by the current
// bidding_logic_uri. Unknown ids yield (nil, nil), never an error.
func (r *AdSelectionRepositoryImpl) GetEntryByID(ctx context.Context, adSelectionID int64) (*models.AdSelectionEntry, error) {
	adSelection, err := r.GetByID(ctx, adSelectionID)
	if err != nil {
		return nil, err
	}
	if adSelection == nil {
		return nil, nil
	}

	decisionLogic, err := r.GetBuyerDecisionLogic(ctx, adSelection.BiddingLogicURI)
	if err != nil {
		return nil, err
	}

	var decisionLogicJS *string
	if decisionLogic != nil && !adSelection.IsContextual() {
		decisionLogicJS = &decisionLogic.BuyerDecisionLogicJS
	}

	return models.NewAdSelectionEntry(adSelection, decisionLogicJS)
}

// GetEntriesByIDs joins each found record with its decision logic; unknown
// ids are simply absent from the result.
func (r *AdSelectionRepositoryImpl) GetEntriesByIDs(ctx context.Context, adSelectionIDs []int64) ([]*models.AdSelectionEntry, error) {
	if len(adSelectionIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var adSelections []*models.AdSelection
	err := db.Where("ad_selection_id IN ?", adSelectionIDs).Find(&adSelections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find ad selections by ids: %w", err)
	}
	if len(adSelections) == 0 {
		return nil, nil
	}

	uris := make([]string, 0, len(adSelections))
	for _, adSelection := range adSelections {
		uris = append(uris, adSelection.BiddingLogicURI)
	}

	var decisionLogics []*models.BuyerDecisionLogic
	err = db.Where("bidding_logic_uri IN ?", uris).Find(&decisionLogics).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find buyer decision logic rows: %w", err)
	}

	logicByURI := make(map[string]*models.BuyerDecisionLogic, len(decisionLogics))
	for _, decisionLogic := range decisionLogics {
		logicByURI[decisionLogic.BiddingLogicURI] = decisionLogic
	}

	entries := make([]*models.AdSelectionEntry, 0, len(adSelections))
	for _, adSelection := range adSelections {
		var decisionLogicJS *string
		if logic, ok := logicByURI[adSelection.BiddingLogicURI]; ok && !adSelection.IsContextual() {
			decisionLogicJS = &logic.BuyerDecisionLogicJS
		}
		entry, err := models.NewAdSelectionEntry(adSelection, decisionLogicJS)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// GetBuyerDecisionLogic retrieves a decision logic row by URI
func (r *AdSelectionRepositoryImpl) GetBuyerDecisionLogic(ctx context.Context, biddingLogicURI string) (*models.BuyerDecisionLogic, error) {
	db := r.getDB(ctx)

	var decisionLogic models.BuyerDecisionLogic
	err := db.Where("bidding_logic_uri = ?", biddingLogicURI).First(&decisionLogic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find buyer decision logic: %w", err)
	}

	return &decisionLogic, nil
}

// IDsWithCallerPackage narrows the given ids to those owned by the caller
// package in the legacy table.
func (r *AdSelectionRepositoryImpl) IDsWithCallerPackage(ctx context.Context, adSelectionIDs []int64, callerPackageName string) ([]int64, error) {
	if len(adSelectionIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var ids []int64
	err := db.Model(&models.AdSelection{}).
		Where("ad_selection_id IN ? AND caller_package_name = ?", adSelectionIDs, callerPackageName).
		Pluck("ad_selection_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find ad selection ids for caller package: %w", err)
	}

	return ids, nil
}

// HistogramInfo returns the winning buyer and ad counter keys for one legacy
// record. The buyer comes from the stored custom audience signals, so a
// contextual record yields an empty buyer.
func (r *AdSelectionRepositoryImpl) HistogramInfo(ctx context.Context, adSelectionID int64, callerPackageName string) (*models.HistogramInfo, error) {
	db := r.getDB(ctx)

	var adSelection models.AdSelection
	err := db.Where("ad_selection_id = ? AND caller_package_name = ?", adSelectionID, callerPackageName).
		First(&adSelection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ad selection histogram info: %w", err)
	}

	signals, err := models.ParseCustomAudienceSignals(adSelection.CustomAudienceSignals)
	if err != nil {
		return nil, fmt.Errorf("failed to parse custom audience signals: %w", err)
	}

	info := &models.HistogramInfo{AdCounterIntKeys: adSelection.AdCounterIntKeys}
	if signals != nil {
		info.Buyer = signals.Buyer
	}

	return info, nil
}

// DeleteByIDs removes the given records; unknown ids are a no-op.
func (r *AdSelectionRepositoryImpl) DeleteByIDs(ctx context.Context, adSelectionIDs []int64) error {
	if len(adSelectionIDs) == 0 {
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

	err = db.Where("ad_selection_id IN ?", adSelectionIDs).
		Delete(&models.AdSelection{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete ad selections by ids: %w", err)
	}

	return nil
}

// RemoveExpired deletes records created strictly before the cutoff.
func (r *AdSelectionRepositoryImpl) RemoveExpired(ctx context.Context, before time.Time) error {
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

	err = db.Where("creation_timestamp < ?", before).
		Delete(&models.AdSelection{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove expired ad selections: %w", err)
	}

	return nil
}

// RemoveOrphanedBuyerDecisionLogic deletes decision logic rows whose URI is
// referenced by no live ad selection record.
func (r *AdSelectionRepositoryImpl) RemoveOrphanedBuyerDecisionLogic(ctx context.Context) error {
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
		"DELETE FROM buyer_decision_logic WHERE bidding_logic_uri NOT IN " +
			"(SELECT DISTINCT bidding_logic_uri FROM ad_selection)",
	).Error
	if err != nil {
		return fmt.Errorf("failed to remove orphaned buyer decision logic: %w", err)
	}

	return nil
}
