package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/Ame-no-Murakumo/models"
	"github.com/amirphl/Ame-no-Murakumo/repository"
	"github.com/amirphl/Ame-no-Murakumo/utils"
)

// AdSelectionDataStore is the schema-aware facade over the legacy and unified
// ad selection tables. Which schema serves a read is decided once, by the
// useUnifiedTables flag captured at construction, so a record written to one
// schema is never answered from the other.
type AdSelectionDataStore interface {
	// PersistAdSelectionInitialization claims an id in the unified schema.
	// Returns false without error when the id is already taken in either
	// schema, so callers can retry with a fresh id.
	PersistAdSelectionInitialization(ctx context.Context, initialization *models.AdSelectionInitialization) (bool, error)
	PersistAdSelectionResult(ctx context.Context, result *models.AdSelectionResult) error
	PersistReportingData(ctx context.Context, adSelectionID int64, payload *models.ReportingPayload) error
	// AdSelectionIDExists consults the unified initialization table when the
	// unified flag is on, the legacy table otherwise.
	AdSelectionIDExists(ctx context.Context, adSelectionID int64) (bool, error)
	// GetReportingPayload resolves reporting data for an id: direct URIs from
	// the unified reporting table first, then the schema the flag selects for
	// the computation fallback. (nil, nil) when nothing is stored.
	GetReportingPayload(ctx context.Context, adSelectionID int64) (*models.ReportingPayload, error)
	// GetHistogramInfo answers only from the schema the flag selects.
	GetHistogramInfo(ctx context.Context, adSelectionID int64, callerPackageName string) (*models.HistogramInfo, error)
	// IDsWithCallerPackage narrows ids to those owned by the caller package.
	// With the unified flag on, both schemas contribute.
	IDsWithCallerPackage(ctx context.Context, adSelectionIDs []int64, callerPackageName string) ([]int64, error)
	// RemoveExpiredAdSelections ages out records older than the TTL in both
	// schemas and sweeps the rows that hang off them.
	RemoveExpiredAdSelections(ctx context.Context) error
}

// AdSelectionDataStoreImpl routes between the legacy and unified repositories.
type AdSelectionDataStoreImpl struct {
	adSelectionRepo repository.AdSelectionRepository
	unifiedRepo     repository.UnifiedAdSelectionRepository
	interactionRepo repository.RegisteredAdInteractionRepository

	useUnifiedTables bool
	expirationTTL    int64 // seconds
}

// NewAdSelectionDataStore creates the schema-aware data store facade
func NewAdSelectionDataStore(
	adSelectionRepo repository.AdSelectionRepository,
	unifiedRepo repository.UnifiedAdSelectionRepository,
	interactionRepo repository.RegisteredAdInteractionRepository,
	useUnifiedTables bool,
	expirationTTLSeconds int64,
) AdSelectionDataStore {
	return &AdSelectionDataStoreImpl{
		adSelectionRepo:  adSelectionRepo,
		unifiedRepo:      unifiedRepo,
		interactionRepo:  interactionRepo,
		useUnifiedTables: useUnifiedTables,
		expirationTTL:    expirationTTLSeconds,
	}
}

func (f *AdSelectionDataStoreImpl) PersistAdSelectionInitialization(ctx context.Context, initialization *models.AdSelectionInitialization) (bool, error) {
	created, err := f.unifiedRepo.PersistInitialization(ctx, initialization)
	if err != nil {
		return false, NewBusinessError("INITIALIZATION_PERSIST_FAILED", "Failed to persist ad selection initialization", err)
	}
	return created, nil
}

func (f *AdSelectionDataStoreImpl) PersistAdSelectionResult(ctx context.Context, result *models.AdSelectionResult) error {
	if err := f.unifiedRepo.PersistResult(ctx, result); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return NewBusinessError("RESULT_WITHOUT_INITIALIZATION", "Result persisted before initialization", ErrResultWithoutInitialized)
		}
		return NewBusinessError("RESULT_PERSIST_FAILED", "Failed to persist ad selection result", err)
	}
	return nil
}

func (f *AdSelectionDataStoreImpl) PersistReportingData(ctx context.Context, adSelectionID int64, payload *models.ReportingPayload) error {
	if err := f.unifiedRepo.PersistReportingData(ctx, adSelectionID, payload); err != nil {
		return NewBusinessError("REPORTING_PERSIST_FAILED", "Failed to persist reporting data", err)
	}
	return nil
}

func (f *AdSelectionDataStoreImpl) AdSelectionIDExists(ctx context.Context, adSelectionID int64) (bool, error) {
	if f.useUnifiedTables {
		return f.unifiedRepo.InitializationExists(ctx, adSelectionID)
	}
	return f.adSelectionRepo.Exists(ctx, adSelectionID)
}

func (f *AdSelectionDataStoreImpl) GetReportingPayload(ctx context.Context, adSelectionID int64) (*models.ReportingPayload, error) {
	// Direct reporting URIs from the unified schema win regardless of the
	// flag; they were resolved at selection time and need no computation.
	reportingData, err := f.unifiedRepo.GetReportingData(ctx, adSelectionID)
	if err != nil {
		return nil, NewBusinessError("REPORTING_FETCH_FAILED", "Failed to fetch reporting data", err)
	}
	if reportingData != nil {
		return &models.ReportingPayload{
			BuyerReportingURI:           reportingData.BuyerReportingURI,
			SellerReportingURI:          reportingData.SellerReportingURI,
			ComponentSellerReportingURI: reportingData.ComponentSellerReportingURI,
		}, nil
	}

	if f.useUnifiedTables {
		info, err := f.unifiedRepo.GetReportingComputationInfo(ctx, adSelectionID)
		if err != nil {
			return nil, NewBusinessError("REPORTING_FETCH_FAILED", "Failed to fetch reporting computation info", err)
		}
		if info == nil {
			return nil, nil
		}
		return &models.ReportingPayload{
			Computation: &models.ReportingComputation{
				BuyerDecisionLogicJS:    info.BuyerDecisionLogicJS,
				BiddingLogicURI:         info.BiddingLogicURI,
				SellerContextualSignals: info.SellerContextualSignals,
				BuyerContextualSignals:  info.BuyerContextualSignals,
				CustomAudienceSignals:   info.CustomAudienceSignals,
				WinningAdRenderURI:      info.WinningAdRenderURI,
				WinningAdBid:            info.WinningAdBid,
			},
		}, nil
	}

	entry, err := f.adSelectionRepo.GetEntryByID(ctx, adSelectionID)
	if err != nil {
		return nil, NewBusinessError("REPORTING_FETCH_FAILED", "Failed to fetch ad selection entry", err)
	}
	if entry == nil {
		return nil, nil
	}

	computation := &models.ReportingComputation{
		BiddingLogicURI:         entry.BiddingLogicURI,
		SellerContextualSignals: entry.SellerContextualSignals,
		BuyerContextualSignals:  entry.BuyerContextualSignals,
		CustomAudienceSignals:   entry.CustomAudienceSignals,
		WinningAdRenderURI:      entry.WinningAdRenderURI,
		WinningAdBid:            entry.WinningAdBid,
	}
	if entry.BuyerDecisionLogicJS != nil {
		computation.BuyerDecisionLogicJS = *entry.BuyerDecisionLogicJS
	}

	return &models.ReportingPayload{Computation: computation}, nil
}

func (f *AdSelectionDataStoreImpl) GetHistogramInfo(ctx context.Context, adSelectionID int64, callerPackageName string) (*models.HistogramInfo, error) {
	if f.useUnifiedTables {
		return f.unifiedRepo.HistogramInfo(ctx, adSelectionID, callerPackageName)
	}
	return f.adSelectionRepo.HistogramInfo(ctx, adSelectionID, callerPackageName)
}

func (f *AdSelectionDataStoreImpl) IDsWithCallerPackage(ctx context.Context, adSelectionIDs []int64, callerPackageName string) ([]int64, error) {
	legacyIDs, err := f.adSelectionRepo.IDsWithCallerPackage(ctx, adSelectionIDs, callerPackageName)
	if err != nil {
		return nil, NewBusinessError("ID_LOOKUP_FAILED", "Failed to look up ids for caller package", err)
	}

	if !f.useUnifiedTables {
		return legacyIDs, nil
	}

	unifiedIDs, err := f.unifiedRepo.IDsWithCallerPackage(ctx, adSelectionIDs, callerPackageName)
	if err != nil {
		return nil, NewBusinessError("ID_LOOKUP_FAILED", "Failed to look up unified ids for caller package", err)
	}

	seen := make(map[int64]struct{}, len(legacyIDs)+len(unifiedIDs))
	merged := make([]int64, 0, len(legacyIDs)+len(unifiedIDs))
	for _, id := range legacyIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	for _, id := range unifiedIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}

	return merged, nil
}

func (f *AdSelectionDataStoreImpl) RemoveExpiredAdSelections(ctx context.Context) error {
	cutoff := utils.UTCNowAdd(-time.Duration(f.expirationTTL) * time.Second)

	if err := f.adSelectionRepo.RemoveExpired(ctx, cutoff); err != nil {
		return NewBusinessError("EXPIRY_SWEEP_FAILED", "Failed to remove expired ad selections", err)
	}
	if err := f.adSelectionRepo.RemoveOrphanedBuyerDecisionLogic(ctx); err != nil {
		return NewBusinessError("EXPIRY_SWEEP_FAILED", "Failed to remove orphaned buyer decision logic", err)
	}
	if err := f.unifiedRepo.RemoveExpired(ctx, cutoff); err != nil {
		return NewBusinessError("EXPIRY_SWEEP_FAILED", "Failed to remove expired unified ad selections", err)
	}
	// The interaction sweep keys off whichever schema owns the live ids;
	// running both would delete registrations present in only one schema.
	if f.useUnifiedTables {
		if err := f.interactionRepo.RemoveExpiredFromUnifiedTable(ctx); err != nil {
			return NewBusinessError("EXPIRY_SWEEP_FAILED", "Failed to remove dangling unified ad interactions", err)
		}
	} else {
		if err := f.interactionRepo.RemoveExpired(ctx); err != nil {
			return NewBusinessError("EXPIRY_SWEEP_FAILED", "Failed to remove dangling ad interactions", err)
		}
	}

	return nil
}
