// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/amirphl/Ame-no-Murakumo/business_flow"
	"github.com/amirphl/Ame-no-Murakumo/models"
	"github.com/amirphl/Ame-no-Murakumo/repository"
	testingutil "github.com/amirphl/Ame-no-Murakumo/testing"
	"github.com/amirphl/Ame-no-Murakumo/utils"
)

const flowExpirationTTLSeconds = 24 * 60 * 60

func newDataStore(testDB *testingutil.TestDB, useUnifiedTables bool) businessflow.AdSelectionDataStore {
	return businessflow.NewAdSelectionDataStore(
		repository.NewAdSelectionRepository(testDB.DB),
		repository.NewUnifiedAdSelectionRepository(testDB.DB),
		repository.NewRegisteredAdInteractionRepository(testDB.DB),
		useUnifiedTables,
		flowExpirationTTLSeconds,
	)
}

func TestAdSelectionDataStoreUnified(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		store := newDataStore(testDB, true)
		legacyRepo := repository.NewAdSelectionRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("InitializationClaimsIDOnce", func(t *testing.T) {
			created, err := store.PersistAdSelectionInitialization(ctx, testingutil.NewAdSelectionInitialization(1, "seller.example", "com.example.app"))
			require.NoError(t, err)
			assert.True(t, created)

			created, err = store.PersistAdSelectionInitialization(ctx, testingutil.NewAdSelectionInitialization(1, "seller.example", "com.example.app"))
			require.NoError(t, err)
			assert.False(t, created)
		})

		t.Run("ExistsConsultsUnifiedSchema", func(t *testing.T) {
			require.NoError(t, legacyRepo.Persist(ctx, testingutil.NewContextualAdSelection(2, "buyer.example")))

			exists, err := store.AdSelectionIDExists(ctx, 1)
			require.NoError(t, err)
			assert.True(t, exists)

			// A legacy-only id is invisible to the unified existence check.
			exists, err = store.AdSelectionIDExists(ctx, 2)
			require.NoError(t, err)
			assert.False(t, exists)
		})

		t.Run("ResultBeforeInitializationFails", func(t *testing.T) {
			err := store.PersistAdSelectionResult(ctx, testingutil.NewAdSelectionResult(999, "buyer.example"))
			require.Error(t, err)
			assert.True(t, businessflow.IsResultWithoutInitialized(err))
		})

		t.Run("DirectReportingURIsWin", func(t *testing.T) {
			buyerURI := "https://buyer.example/reportWin"
			require.NoError(t, store.PersistReportingData(ctx, 1, &models.ReportingPayload{BuyerReportingURI: &buyerURI}))

			payload, err := store.GetReportingPayload(ctx, 1)
			require.NoError(t, err)
			require.NotNil(t, payload)
			require.NotNil(t, payload.BuyerReportingURI)
			assert.Equal(t, buyerURI, *payload.BuyerReportingURI)
			assert.Nil(t, payload.Computation)
		})

		t.Run("ComputationFallback", func(t *testing.T) {
			created, err := store.PersistAdSelectionInitialization(ctx, testingutil.NewAdSelectionInitialization(3, "seller.example", "com.example.app"))
			require.NoError(t, err)
			require.True(t, created)

			require.NoError(t, store.PersistReportingData(ctx, 3, &models.ReportingPayload{
				Computation: &models.ReportingComputation{
					BuyerDecisionLogicJS: "function reportWin() {}",
					BiddingLogicURI:      "https://buyer.example/bidding.js",
					WinningAdRenderURI:   "https://buyer.example/ads/7",
					WinningAdBid:         4.0,
				},
			}))

			payload, err := store.GetReportingPayload(ctx, 3)
			require.NoError(t, err)
			require.NotNil(t, payload)
			require.NotNil(t, payload.Computation)
			assert.Equal(t, 4.0, payload.Computation.WinningAdBid)
			assert.Nil(t, payload.BuyerReportingURI)
		})

		t.Run("ReportingAbsentYieldsNil", func(t *testing.T) {
			payload, err := store.GetReportingPayload(ctx, 999)
			assert.NoError(t, err)
			assert.Nil(t, payload)
		})

		t.Run("HistogramNeverAnswersFromLegacy", func(t *testing.T) {
			info, err := store.GetHistogramInfo(ctx, 2, "com.example.app")
			assert.NoError(t, err)
			assert.Nil(t, info)
		})

		t.Run("IDsWithCallerPackageMergesSchemas", func(t *testing.T) {
			ids, err := store.IDsWithCallerPackage(ctx, []int64{1, 2, 3, 999}, "com.example.app")
			require.NoError(t, err)
			assert.ElementsMatch(t, []int64{1, 2, 3}, ids)
		})

		t.Run("RemoveExpiredSweepsBothSchemas", func(t *testing.T) {
			oldLegacy := testingutil.NewContextualAdSelection(10, "buyer.example")
			oldLegacy.CreationTimestamp = utils.UTCNow().Add(-48 * time.Hour)
			require.NoError(t, legacyRepo.Persist(ctx, oldLegacy))

			oldInit := testingutil.NewAdSelectionInitialization(11, "seller.example", "com.example.app")
			oldInit.CreationInstant = utils.UTCNow().Add(-48 * time.Hour)
			created, err := store.PersistAdSelectionInitialization(ctx, oldInit)
			require.NoError(t, err)
			require.True(t, created)

			interactionRepo := repository.NewRegisteredAdInteractionRepository(testDB.DB)
			require.NoError(t, interactionRepo.Register(ctx, testingutil.NewRegisteredAdInteractions(11, models.ReportingDestinationSeller, 1)))
			require.NoError(t, interactionRepo.Register(ctx, testingutil.NewRegisteredAdInteractions(1, models.ReportingDestinationSeller, 1)))

			require.NoError(t, store.RemoveExpiredAdSelections(ctx))

			gone, err := legacyRepo.GetByID(ctx, 10)
			require.NoError(t, err)
			assert.Nil(t, gone)

			exists, err := store.AdSelectionIDExists(ctx, 11)
			require.NoError(t, err)
			assert.False(t, exists)

			// Registrations for the expired id went with it; the live id keeps its rows.
			dangling, err := interactionRepo.List(ctx, 11, models.ReportingDestinationSeller)
			require.NoError(t, err)
			assert.Empty(t, dangling)

			kept, err := interactionRepo.List(ctx, 1, models.ReportingDestinationSeller)
			require.NoError(t, err)
			assert.Len(t, kept, 1)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAdSelectionDataStoreLegacy(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		store := newDataStore(testDB, false)
		legacyRepo := repository.NewAdSelectionRepository(testDB.DB)
		unifiedRepo := repository.NewUnifiedAdSelectionRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("ExistsConsultsLegacySchema", func(t *testing.T) {
			require.NoError(t, legacyRepo.Persist(ctx, testingutil.NewRemarketingAdSelection(1, "buyer.example")))

			exists, err := store.AdSelectionIDExists(ctx, 1)
			require.NoError(t, err)
			assert.True(t, exists)
		})

		t.Run("ComputationFromLegacyEntry", func(t *testing.T) {
			require.NoError(t, legacyRepo.PersistBuyerDecisionLogic(ctx, testingutil.NewBuyerDecisionLogic("https://buyer.example/bidding.js")))

			payload, err := store.GetReportingPayload(ctx, 1)
			require.NoError(t, err)
			require.NotNil(t, payload)
			require.NotNil(t, payload.Computation)
			assert.Equal(t, "https://buyer.example/bidding.js", payload.Computation.BiddingLogicURI)
			assert.Equal(t, "function reportWin() { return; }", payload.Computation.BuyerDecisionLogicJS)
		})

		t.Run("ContextualComputationHasNoDecisionLogic", func(t *testing.T) {
			require.NoError(t, legacyRepo.Persist(ctx, testingutil.NewContextualAdSelection(2, "buyer.example")))

			payload, err := store.GetReportingPayload(ctx, 2)
			require.NoError(t, err)
			require.NotNil(t, payload)
			require.NotNil(t, payload.Computation)
			assert.Empty(t, payload.Computation.BuyerDecisionLogicJS)
		})

		t.Run("DirectURIsStillWinWithFlagOff", func(t *testing.T) {
			created, err := unifiedRepo.PersistInitialization(ctx, testingutil.NewAdSelectionInitialization(3, "seller.example", "com.example.app"))
			require.NoError(t, err)
			require.True(t, created)

			sellerURI := "https://seller.example/reportResult"
			require.NoError(t, unifiedRepo.PersistReportingData(ctx, 3, &models.ReportingPayload{SellerReportingURI: &sellerURI}))

			payload, err := store.GetReportingPayload(ctx, 3)
			require.NoError(t, err)
			require.NotNil(t, payload)
			require.NotNil(t, payload.SellerReportingURI)
			assert.Nil(t, payload.Computation)
		})

		t.Run("HistogramFromLegacySignals", func(t *testing.T) {
			info, err := store.GetHistogramInfo(ctx, 1, "com.example.app")
			require.NoError(t, err)
			require.NotNil(t, info)
			assert.Equal(t, "buyer.example", info.Buyer)
		})

		t.Run("IDsWithCallerPackageStaysLegacy", func(t *testing.T) {
			ids, err := store.IDsWithCallerPackage(ctx, []int64{1, 2, 3}, "com.example.app")
			require.NoError(t, err)
			// Id 3 lives only in the unified schema and is not merged in.
			assert.ElementsMatch(t, []int64{1, 2}, ids)
		})

		return nil
	})
	require.NoError(t, err)
}
