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

// UnifiedAdSelectionRepositoryImpl implements UnifiedAdSelectionRepository interface
type UnifiedAdSelectionRepositoryImpl struct {
	*BaseRepository[models.AdSelectionInitialization]
}

// NewUnifiedAdSelectionRepository creates a new unified ad selection repository
func NewUnifiedAdSelectionRepository(db *gorm.DB) UnifiedAdSelectionRepository {
	return &UnifiedAdSelectionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdSelectionInitialization](db),
	}
}

// PersistInitialization creates the parent row of the unified chain. When the
// id is already taken in either schema it returns (false, nil) instead of
// failing, so callers probing for a free id can retry cheaply.
func (r *UnifiedAdSelectionRepositoryImpl) PersistInitialization(ctx context.Context, initialization *models.AdSelectionInitialization) (bool, error) {
	if initialization == nil {
		return false, models.ErrMissingAdSelection
	}
	if initialization.AdSelectionID == 0 {
		return false, models.ErrMissingAdSelectionID
	}
	if initialization.CallerPackageName == "" {
		return false, models.ErrMissingCallerPackageName
	}
	if initialization.Seller == "" {
		return false, models.ErrMissingSeller
	}

	created := false
	err := WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		db := r.getDB(txCtx)

		var count int64
		err := db.Model(&models.AdSelectionInitialization{}).
			Where("ad_selection_id = ?", initialization.AdSelectionID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check initialization table: %w", err)
		}
		if count > 0 {
			return nil
		}

		err = db.Model(&models.AdSelection{}).
			Where("ad_selection_id = ?", initialization.AdSelectionID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check legacy ad selection table: %w", err)
		}
		if count > 0 {
			return nil
		}

		if err := db.Create(initialization).Error; err != nil {
			return fmt.Errorf("failed to persist ad selection initialization: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}

// PersistResult inserts the winning-ad row. A missing initialization row
// surfaces as a foreign-key constraint violation.
func (r *UnifiedAdSelectionRepositoryImpl) PersistResult(ctx context.Context, result *models.AdSelectionResult) error {
	if result == nil {
		return models.ErrMissingAdSelection
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

	err = db.Create(result).Error
	if err != nil {
		return fmt.Errorf("failed to persist ad selection result %d: %w", result.AdSelectionID, err)
	}

	return nil
}

// PersistReportingData validates and inserts the win reporting URIs, or the
// computation variant when the payload carries one instead.
func (r *UnifiedAdSelectionRepositoryImpl) PersistReportingData(ctx context.Context, adSelectionID int64, payload *models.ReportingPayload) error {
	if err := models.ValidateReportingPayload(payload); err != nil {
		return err
	}

	if payload.Computation != nil {
		return r.PersistReportingComputationInfo(ctx, &models.ReportingComputationInfo{
			AdSelectionID:           adSelectionID,
			BiddingLogicURI:         payload.Computation.BiddingLogicURI,
			BuyerDecisionLogicJS:    payload.Computation.BuyerDecisionLogicJS,
			SellerContextualSignals: payload.Computation.SellerContextualSignals,
			BuyerContextualSignals:  payload.Computation.BuyerContextualSignals,
			CustomAudienceSignals:   payload.Computation.CustomAudienceSignals,
			WinningAdBid:            payload.Computation.WinningAdBid,
			WinningAdRenderURI:      payload.Computation.WinningAdRenderURI,
		})
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

	reportingData := &models.ReportingData{
		AdSelectionID:               adSelectionID,
		BuyerReportingURI:           payload.BuyerReportingURI,
		SellerReportingURI:          payload.SellerReportingURI,
		ComponentSellerReportingURI: payload.ComponentSellerReportingURI,
	}

	err = db.Create(reportingData).Error
	if err != nil {
		return fmt.Errorf("failed to persist reporting data %d: %w", adSelectionID, err)
	}

	return nil
}

// PersistReportingComputationInfo inserts the computation variant row.
func (r *UnifiedAdSelectionRepositoryImpl) PersistReportingComputationInfo(ctx context.Context, info *models.ReportingComputationInfo) error {
	if info == nil {
		return models.ErrMissingAdSelection
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

	err = db.Create(info).Error
	if err != nil {
		return fmt.Errorf("failed to persist reporting computation info %d: %w", info.AdSelectionID, err)
	}

	return nil
}

// InitializationExists checks the unified initialization table only.
func (r *UnifiedAdSelectionRepositoryImpl) InitializationExists(ctx context.Context, adSelectionID int64) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.AdSelectionInitialization{}).
		Where("ad_selection_id = ?", adSelectionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check initialization existence: %w", err)
	}

	return count > 0, nil
}

// ReportingComputationInfoExists checks for a computation variant row.
func (r *UnifiedAdSelectionRepositoryImpl) ReportingComputationInfoExists(ctx context.Context, adSelectionID int64) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.ReportingComputationInfo{}).
		Where("ad_selection_id = ?", adSelectionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check reporting computation info existence: %w", err)
	}

	return count > 0, nil
}

// GetInitialization retrieves the parent row by id
func (r *UnifiedAdSelectionRepositoryImpl) GetInitialization(ctx context.Context, adSelectionID int64) (*models.AdSelectionInitialization, error) {
	db := r.getDB(ctx)

	var initialization models.AdSelectionInitialization
	err := db.Where("ad_selection_id = ?", adSelectionID).First(&initialization).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ad selection initialization: %w", err)
	}

	return &initialization, nil
}

// GetReportingData retrieves the reporting URI row by id
func (r *UnifiedAdSelectionRepositoryImpl) GetReportingData(ctx context.Context, adSelectionID int64) (*models.ReportingData, error) {
	db := r.getDB(ctx)

	var reportingData models.ReportingData
	err := db.Where("ad_selection_id = ?", adSelectionID).First(&reportingData).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find reporting data: %w", err)
	}

	return &reportingData, nil
}

// GetReportingComputationInfo retrieves the computation variant row by id
func (r *UnifiedAdSelectionRepositoryImpl) GetReportingComputationInfo(ctx context.Context, adSelectionID int64) (*models.ReportingComputationInfo, error) {
	db := r.getDB(ctx)

	var info models.ReportingComputationInfo
	err := db.Where("ad_selection_id = ?", adSelectionID).First(&info).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find reporting computation info: %w", err)
	}

	return &info, nil
}

// GetWinningBuyer returns the winning buyer for an id, empty when absent.
func (r *UnifiedAdSelectionRepositoryImpl) GetWinningBuyer(ctx context.Context, adSelectionID int64) (string, error) {
	db := r.getDB(ctx)

	var result models.AdSelectionResult
	err := db.Where("ad_selection_id = ?", adSelectionID).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find winning buyer: %w", err)
	}

	return result.WinningBuyer, nil
}

// GetWinningBidAndURI returns the winning bid and render URI pair for an id.
func (r *UnifiedAdSelectionRepositoryImpl) GetWinningBidAndURI(ctx context.Context, adSelectionID int64) (*models.WinningBidAndURI, error) {
	db := r.getDB(ctx)

	var pair models.WinningBidAndURI
	err := db.Model(&models.AdSelectionResult{}).
		Select("ad_selection_id", "winning_ad_bid", "winning_ad_render_uri").
		Where("ad_selection_id = ?", adSelectionID).
		First(&pair).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find winning bid and uri: %w", err)
	}

	return &pair, nil
}

// GetWinningBidAndURIs returns the pairs for all found ids.
func (r *UnifiedAdSelectionRepositoryImpl) GetWinningBidAndURIs(ctx context.Context, adSelectionIDs []int64) ([]models.WinningBidAndURI, error) {
	if len(adSelectionIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var pairs []models.WinningBidAndURI
	err := db.Model(&models.AdSelectionResult{}).
		Select("ad_selection_id", "winning_ad_bid", "winning_ad_render_uri").
		Where("ad_selection_id IN ?", adSelectionIDs).
		Find(&pairs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find winning bids and uris: %w", err)
	}

	return pairs, nil
}

// GetWinningCustomAudience returns the winning custom audience payload
// embedded in the result row.
func (r *UnifiedAdSelectionRepositoryImpl) GetWinningCustomAudience(ctx context.Context, adSelectionID int64) (*models.WinningCustomAudience, error) {
	db := r.getDB(ctx)

	var result models.AdSelectionResult
	err := db.Where("ad_selection_id = ?", adSelectionID).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find winning custom audience: %w", err)
	}

	return &models.WinningCustomAudience{
		Name:             result.WinningCustomAudienceName,
		Owner:            result.WinningCustomAudienceOwner,
		AdCounterIntKeys: result.AdCounterIntKeys,
	}, nil
}

// IDsWithCallerPackage narrows the given ids to those owned by the caller
// package in the initialization table.
func (r *UnifiedAdSelectionRepositoryImpl) IDsWithCallerPackage(ctx context.Context, adSelectionIDs []int64, callerPackageName string) ([]int64, error) {
	if len(adSelectionIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var ids []int64
	err := db.Model(&models.AdSelectionInitialization{}).
		Where("ad_selection_id IN ? AND caller_package_name = ?", adSelectionIDs, callerPackageName).
		Pluck("ad_selection_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find initialization ids for caller package: %w", err)
	}

	return ids, nil
}

// HistogramInfo reads the winning buyer and ad counter keys from the unified
// result row. Ids living only in the legacy table yield (nil, nil): unified
// and legacy histogram lookups never cross-contaminate.
func (r *UnifiedAdSelectionRepositoryImpl) HistogramInfo(ctx context.Context, adSelectionID int64, callerPackageName string) (*models.HistogramInfo, error) {
	db := r.getDB(ctx)

	var initialization models.AdSelectionInitialization
	err := db.Where("ad_selection_id = ? AND caller_package_name = ?", adSelectionID, callerPackageName).
		First(&initialization).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find initialization for histogram info: %w", err)
	}

	var result models.AdSelectionResult
	err = db.Where("ad_selection_id = ?", adSelectionID).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.HistogramInfo{}, nil
		}
		return nil, fmt.Errorf("failed to find result for histogram info: %w", err)
	}

	return &models.HistogramInfo{
		Buyer:            result.WinningBuyer,
		AdCounterIntKeys: result.AdCounterIntKeys,
	}, nil
}

// RemoveExpired deletes initialization rows created strictly before the
// cutoff. Result, reporting-data and reporting-computation rows cascade via
// their foreign keys.
func (r *UnifiedAdSelectionRepositoryImpl) RemoveExpired(ctx context.Context, before time.Time) error {
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

	err = db.Where("creation_instant < ?", before).
		Delete(&models.AdSelectionInitialization{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove expired initializations: %w", err)
	}

	return nil
}
