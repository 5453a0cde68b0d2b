// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Ame-no-Murakumo/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// AdSelectionRepository defines operations for the legacy single-table
// ad selection schema and its buyer decision logic side table.
type AdSelectionRepository interface {
	// Persist strict-inserts a validated record; a duplicate id surfaces as
	// a constraint violation.
	Persist(ctx context.Context, adSelection *models.AdSelection) error
	// PersistBuyerDecisionLogic replaces on bidding_logic_uri collision,
	// last write wins.
	PersistBuyerDecisionLogic(ctx context.Context, decisionLogic *models.BuyerDecisionLogic) error
	Exists(ctx context.Context, adSelectionID int64) (bool, error)
	BuyerDecisionLogicExists(ctx context.Context, biddingLogicURI string) (bool, error)
	GetByID(ctx context.Context, adSelectionID int64) (*models.AdSelection, error)
	// GetEntryByID joins the record with its decision logic by URI; absent
	// ids yield (nil, nil).
	GetEntryByID(ctx context.Context, adSelectionID int64) (*models.AdSelectionEntry, error)
	GetEntriesByIDs(ctx context.Context, adSelectionIDs []int64) ([]*models.AdSelectionEntry, error)
	GetBuyerDecisionLogic(ctx context.Context, biddingLogicURI string) (*models.BuyerDecisionLogic, error)
	IDsWithCallerPackage(ctx context.Context, adSelectionIDs []int64, callerPackageName string) ([]int64, error)
	HistogramInfo(ctx context.Context, adSelectionID int64, callerPackageName string) (*models.HistogramInfo, error)
	DeleteByIDs(ctx context.Context, adSelectionIDs []int64) error
	// RemoveExpired deletes records with creation_timestamp strictly before
	// the cutoff.
	RemoveExpired(ctx context.Context, before time.Time) error
	// RemoveOrphanedBuyerDecisionLogic deletes logic rows no live record
	// references.
	RemoveOrphanedBuyerDecisionLogic(ctx context.Context) error
}

// UnifiedAdSelectionRepository defines operations for the normalized
// initialization / result / reporting schema.
type UnifiedAdSelectionRepository interface {
	// PersistInitialization creates the parent row; returns false without
	// error when the id already exists in either the unified or the legacy
	// table, to support idempotent retry probing.
	PersistInitialization(ctx context.Context, initialization *models.AdSelectionInitialization) (bool, error)
	// PersistResult requires a pre-existing initialization row; inserting
	// without one fails with a constraint violation.
	PersistResult(ctx context.Context, result *models.AdSelectionResult) error
	PersistReportingData(ctx context.Context, adSelectionID int64, payload *models.ReportingPayload) error
	PersistReportingComputationInfo(ctx context.Context, info *models.ReportingComputationInfo) error
	InitializationExists(ctx context.Context, adSelectionID int64) (bool, error)
	ReportingComputationInfoExists(ctx context.Context, adSelectionID int64) (bool, error)
	GetInitialization(ctx context.Context, adSelectionID int64) (*models.AdSelectionInitialization, error)
	GetReportingData(ctx context.Context, adSelectionID int64) (*models.ReportingData, error)
	GetReportingComputationInfo(ctx context.Context, adSelectionID int64) (*models.ReportingComputationInfo, error)
	GetWinningBuyer(ctx context.Context, adSelectionID int64) (string, error)
	GetWinningBidAndURI(ctx context.Context, adSelectionID int64) (*models.WinningBidAndURI, error)
	GetWinningBidAndURIs(ctx context.Context, adSelectionIDs []int64) ([]models.WinningBidAndURI, error)
	GetWinningCustomAudience(ctx context.Context, adSelectionID int64) (*models.WinningCustomAudience, error)
	IDsWithCallerPackage(ctx context.Context, adSelectionIDs []int64, callerPackageName string) ([]int64, error)
	HistogramInfo(ctx context.Context, adSelectionID int64, callerPackageName string) (*models.HistogramInfo, error)
	// RemoveExpired deletes initialization rows older than the cutoff and
	// cascades their result and reporting rows.
	RemoveExpired(ctx context.Context, before time.Time) error
}

// RegisteredAdInteractionRepository defines operations for the bounded
// interaction registry.
type RegisteredAdInteractionRepository interface {
	// Register bulk-upserts unconditionally, overwriting on composite-key
	// collision. No capacity check.
	Register(ctx context.Context, interactions []*models.RegisteredAdInteraction) error
	// RegisterSafely accepts interactions in input order while both the
	// total-table count and the per-(id, destination) count stay under
	// their caps; the remainder of the batch is silently dropped. The
	// count-check and inserts run in one transaction.
	RegisterSafely(ctx context.Context, adSelectionID int64, interactions []*models.RegisteredAdInteraction, maxTableSize, maxPerDestination int64, destination int) error
	List(ctx context.Context, adSelectionID int64, destination int) ([]*models.RegisteredAdInteraction, error)
	GetURI(ctx context.Context, adSelectionID int64, interactionKey string, destination int) (string, error)
	Exists(ctx context.Context, adSelectionID int64, interactionKey string, destination int) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountPerDestination(ctx context.Context, adSelectionID int64, destination int) (int64, error)
	// RemoveExpired deletes rows whose ad selection id is no longer present
	// in the legacy ad selection table.
	RemoveExpired(ctx context.Context) error
	// RemoveExpiredFromUnifiedTable does the same against the unified
	// initialization table.
	RemoveExpiredFromUnifiedTable(ctx context.Context) error
}

// EncryptionKeyRepository defines operations for per-coordinator server
// auction key material.
type EncryptionKeyRepository interface {
	Insert(ctx context.Context, key *models.EncryptionKey) error
	InsertAll(ctx context.Context, keys []*models.EncryptionKey) error
	// LatestExpiryNKeys returns up to n keys of the type and coordinator,
	// freshest expiry first.
	LatestExpiryNKeys(ctx context.Context, keyType int, coordinatorURL string, n int) ([]*models.EncryptionKey, error)
	LatestExpiryNActiveKeys(ctx context.Context, keyType int, coordinatorURL string, asOf time.Time, n int) ([]*models.EncryptionKey, error)
	ExpiredKeys(ctx context.Context, keyType int, coordinatorURL string, asOf time.Time) ([]*models.EncryptionKey, error)
	AllExpiredKeys(ctx context.Context, asOf time.Time) ([]*models.EncryptionKey, error)
	DeleteExpiredKeys(ctx context.Context, keyType int, coordinatorURL string, asOf time.Time) (int64, error)
	DeleteAllExpiredKeys(ctx context.Context, asOf time.Time) (int64, error)
	DeleteAll(ctx context.Context) error
}

// EncryptionContextRepository defines operations for per-auction encryption
// contexts.
type EncryptionContextRepository interface {
	Persist(ctx context.Context, encryptionContext *models.EncryptionContext) error
	GetContext(ctx context.Context, contextID int64, keyType int) (*models.EncryptionContext, error)
	// RemoveExpired deletes rows with creation_instant strictly before the
	// cutoff; rows created at or after the cutoff are retained.
	RemoveExpired(ctx context.Context, before time.Time) (int64, error)
}

// OverrideRepository defines operations for developer override tables.
type OverrideRepository interface {
	PersistAdSelectionOverride(ctx context.Context, override *models.AdSelectionOverride) error
	PersistBuyerDecisionOverride(ctx context.Context, override *models.BuyerDecisionOverride) error
	PersistFromOutcomesOverride(ctx context.Context, override *models.AdSelectionFromOutcomesOverride) error
	AdSelectionOverrideExists(ctx context.Context, configID, appPackageName string) (bool, error)
	FromOutcomesOverrideExists(ctx context.Context, configID, appPackageName string) (bool, error)
	GetDecisionLogicOverride(ctx context.Context, configID, appPackageName string) (string, error)
	GetTrustedScoringSignalsOverride(ctx context.Context, configID, appPackageName string) (string, error)
	GetBuyerDecisionOverrides(ctx context.Context, configID, appPackageName string) ([]*models.BuyerDecisionOverride, error)
	GetSelectionLogicOverride(ctx context.Context, configID, appPackageName string) (string, error)
	GetSelectionSignalsOverride(ctx context.Context, configID, appPackageName string) (string, error)
	RemoveAdSelectionOverride(ctx context.Context, configID, appPackageName string) error
	RemoveBuyerDecisionOverrides(ctx context.Context, configID, appPackageName string) error
	RemoveFromOutcomesOverride(ctx context.Context, configID, appPackageName string) error
	RemoveAllOverridesForPackage(ctx context.Context, appPackageName string) error
}

// ConsentedDebugConfigurationRepository defines operations for developer
// debug consent records.
type ConsentedDebugConfigurationRepository interface {
	Persist(ctx context.Context, configuration *models.ConsentedDebugConfiguration) error
	// GetActive returns unexpired consented configurations, most recent
	// creation first, up to limit.
	GetActive(ctx context.Context, asOf time.Time, limit int) ([]*models.ConsentedDebugConfiguration, error)
	// DeleteExistingThenPersist atomically replaces all existing rows with
	// the given one, enforcing at-most-one active configuration.
	DeleteExistingThenPersist(ctx context.Context, configuration *models.ConsentedDebugConfiguration) error
	DeleteExpired(ctx context.Context, asOf time.Time) (int64, error)
	DeleteAll(ctx context.Context) error
}

// AppInstallPermissionRepository defines operations for buyer app-install
// filtering permissions.
type AppInstallPermissionRepository interface {
	// SetAdTechsForPackage atomically replaces the package's permission
	// rows with the given buyers.
	SetAdTechsForPackage(ctx context.Context, packageName string, buyers []string) error
	CanBuyerFilterPackage(ctx context.Context, buyer, packageName string) (bool, error)
	GetBuyersForPackage(ctx context.Context, packageName string) ([]string, error)
	DeleteByPackageName(ctx context.Context, packageName string) error
}
