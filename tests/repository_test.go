// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/Ame-no-Murakumo/models"
	"github.com/amirphl/Ame-no-Murakumo/repository"
	testingutil "github.com/amirphl/Ame-no-Murakumo/testing"
	"github.com/amirphl/Ame-no-Murakumo/utils"
)

func TestAdSelectionRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewAdSelectionRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("PersistAndGetByID", func(t *testing.T) {
			adSelection := testingutil.NewRemarketingAdSelection(1, "buyer.example")
			require.NoError(t, repo.Persist(ctx, adSelection))

			found, err := repo.GetByID(ctx, 1)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, int64(1), found.AdSelectionID)
			assert.Equal(t, adSelection.BiddingLogicURI, found.BiddingLogicURI)
		})

		t.Run("PersistDuplicateID", func(t *testing.T) {
			duplicate := testingutil.NewRemarketingAdSelection(1, "other.example")
			err := repo.Persist(ctx, duplicate)
			require.Error(t, err)
			assert.True(t, repository.IsUniqueViolation(err))
		})

		t.Run("PersistValidation", func(t *testing.T) {
			err := repo.Persist(ctx, &models.AdSelection{
				AdSelectionID:   2,
				BiddingLogicURI: "https://buyer.example/bidding.js",
			})
			require.Error(t, err)
			assert.True(t, models.IsMissingCallerPackageName(err))

			err = repo.Persist(ctx, &models.AdSelection{
				AdSelectionID:     2,
				CallerPackageName: "com.example.app",
			})
			require.Error(t, err)
			assert.True(t, models.IsMissingBiddingLogicURI(err))
		})

		t.Run("GetByIDNotFound", func(t *testing.T) {
			found, err := repo.GetByID(ctx, 999)
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("BuyerDecisionLogicLastWriteWins", func(t *testing.T) {
			uri := "https://buyer.example/bidding.js"
			require.NoError(t, repo.PersistBuyerDecisionLogic(ctx, &models.BuyerDecisionLogic{
				BiddingLogicURI:      uri,
				BuyerDecisionLogicJS: "function v1() {}",
			}))
			require.NoError(t, repo.PersistBuyerDecisionLogic(ctx, &models.BuyerDecisionLogic{
				BiddingLogicURI:      uri,
				BuyerDecisionLogicJS: "function v2() {}",
			}))

			logic, err := repo.GetBuyerDecisionLogic(ctx, uri)
			require.NoError(t, err)
			require.NotNil(t, logic)
			assert.Equal(t, "function v2() {}", logic.BuyerDecisionLogicJS)
		})

		t.Run("GetEntryByIDJoinsDecisionLogic", func(t *testing.T) {
			entry, err := repo.GetEntryByID(ctx, 1)
			require.NoError(t, err)
			require.NotNil(t, entry)
			require.NotNil(t, entry.BuyerDecisionLogicJS)
			assert.Equal(t, "function v2() {}", *entry.BuyerDecisionLogicJS)
		})

		t.Run("GetEntryByIDContextualHasNoDecisionLogic", func(t *testing.T) {
			contextual := testingutil.NewContextualAdSelection(3, "buyer.example")
			require.NoError(t, repo.Persist(ctx, contextual))

			entry, err := repo.GetEntryByID(ctx, 3)
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.True(t, entry.IsContextual())
			assert.Nil(t, entry.BuyerDecisionLogicJS)
		})

		t.Run("GetEntryByIDNotFound", func(t *testing.T) {
			entry, err := repo.GetEntryByID(ctx, 999)
			assert.NoError(t, err)
			assert.Nil(t, entry)
		})

		t.Run("GetEntriesByIDsSkipsUnknown", func(t *testing.T) {
			entries, err := repo.GetEntriesByIDs(ctx, []int64{1, 3, 999})
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})

		t.Run("IDsWithCallerPackage", func(t *testing.T) {
			ids, err := repo.IDsWithCallerPackage(ctx, []int64{1, 3, 999}, "com.example.app")
			require.NoError(t, err)
			assert.ElementsMatch(t, []int64{1, 3}, ids)

			ids, err = repo.IDsWithCallerPackage(ctx, []int64{1, 3}, "com.other.app")
			require.NoError(t, err)
			assert.Empty(t, ids)
		})

		t.Run("HistogramInfoBuyerFromSignals", func(t *testing.T) {
			info, err := repo.HistogramInfo(ctx, 1, "com.example.app")
			require.NoError(t, err)
			require.NotNil(t, info)
			assert.Equal(t, "buyer.example", info.Buyer)
		})

		t.Run("HistogramInfoContextualHasEmptyBuyer", func(t *testing.T) {
			info, err := repo.HistogramInfo(ctx, 3, "com.example.app")
			require.NoError(t, err)
			require.NotNil(t, info)
			assert.Empty(t, info.Buyer)
		})

		t.Run("HistogramInfoWrongCaller", func(t *testing.T) {
			info, err := repo.HistogramInfo(ctx, 1, "com.other.app")
			assert.NoError(t, err)
			assert.Nil(t, info)
		})

		t.Run("RemoveExpiredIsStrict", func(t *testing.T) {
			cutoff := utils.UTCNow()
			old := testingutil.NewContextualAdSelection(10, "buyer.example")
			old.CreationTimestamp = cutoff.Add(-time.Hour)
			atCutoff := testingutil.NewContextualAdSelection(11, "buyer.example")
			atCutoff.CreationTimestamp = cutoff
			require.NoError(t, repo.Persist(ctx, old))
			require.NoError(t, repo.Persist(ctx, atCutoff))

			require.NoError(t, repo.RemoveExpired(ctx, cutoff))

			gone, err := repo.GetByID(ctx, 10)
			require.NoError(t, err)
			assert.Nil(t, gone)

			kept, err := repo.GetByID(ctx, 11)
			require.NoError(t, err)
			assert.NotNil(t, kept)
		})

		t.Run("RemoveOrphanedBuyerDecisionLogic", func(t *testing.T) {
			orphanURI := "https://orphan.example/bidding.js"
			require.NoError(t, repo.PersistBuyerDecisionLogic(ctx, &models.BuyerDecisionLogic{
				BiddingLogicURI:      orphanURI,
				BuyerDecisionLogicJS: "function orphan() {}",
			}))

			require.NoError(t, repo.RemoveOrphanedBuyerDecisionLogic(ctx))

			orphan, err := repo.GetBuyerDecisionLogic(ctx, orphanURI)
			require.NoError(t, err)
			assert.Nil(t, orphan)

			// The referenced logic survives.
			kept, err := repo.GetBuyerDecisionLogic(ctx, "https://buyer.example/bidding.js")
			require.NoError(t, err)
			assert.NotNil(t, kept)
		})

		t.Run("DeleteByIDs", func(t *testing.T) {
			require.NoError(t, repo.DeleteByIDs(ctx, []int64{3, 999}))
			gone, err := repo.GetByID(ctx, 3)
			require.NoError(t, err)
			assert.Nil(t, gone)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestUnifiedAdSelectionRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewUnifiedAdSelectionRepository(testDB.DB)
		legacyRepo := repository.NewAdSelectionRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("PersistInitializationClaimsID", func(t *testing.T) {
			created, err := repo.PersistInitialization(ctx, testingutil.NewAdSelectionInitialization(100, "seller.example", "com.example.app"))
			require.NoError(t, err)
			assert.True(t, created)

			created, err = repo.PersistInitialization(ctx, testingutil.NewAdSelectionInitialization(100, "seller.example", "com.example.app"))
			require.NoError(t, err)
			assert.False(t, created)
		})

		t.Run("PersistInitializationRespectsLegacyIDs", func(t *testing.T) {
			require.NoError(t, legacyRepo.Persist(ctx, testingutil.NewContextualAdSelection(101, "buyer.example")))

			created, err := repo.PersistInitialization(ctx, testingutil.NewAdSelectionInitialization(101, "seller.example", "com.example.app"))
			require.NoError(t, err)
			assert.False(t, created)
		})

		t.Run("PersistResultRequiresInitialization", func(t *testing.T) {
			err := repo.PersistResult(ctx, testingutil.NewAdSelectionResult(999, "buyer.example"))
			require.Error(t, err)
			assert.True(t, repository.IsForeignKeyViolation(err))
		})

		t.Run("PersistResultAndReadWinners", func(t *testing.T) {
			require.NoError(t, repo.PersistResult(ctx, testingutil.NewAdSelectionResult(100, "buyer.example")))

			buyer, err := repo.GetWinningBuyer(ctx, 100)
			require.NoError(t, err)
			assert.Equal(t, "buyer.example", buyer)

			bidAndURI, err := repo.GetWinningBidAndURI(ctx, 100)
			require.NoError(t, err)
			require.NotNil(t, bidAndURI)
			assert.Equal(t, 2.25, bidAndURI.WinningAdBid)

			audience, err := repo.GetWinningCustomAudience(ctx, 100)
			require.NoError(t, err)
			require.NotNil(t, audience)
			require.NotNil(t, audience.Name)
			assert.Equal(t, "shoes", *audience.Name)
		})

		t.Run("GetWinningBuyerNotFound", func(t *testing.T) {
			buyer, err := repo.GetWinningBuyer(ctx, 999)
			assert.NoError(t, err)
			assert.Empty(t, buyer)
		})

		t.Run("ReportingDataRoundTrip", func(t *testing.T) {
			buyerURI := "https://buyer.example/reportWin"
			sellerURI := "https://seller.example/reportResult"
			require.NoError(t, repo.PersistReportingData(ctx, 100, &models.ReportingPayload{
				BuyerReportingURI:  &buyerURI,
				SellerReportingURI: &sellerURI,
			}))

			data, err := repo.GetReportingData(ctx, 100)
			require.NoError(t, err)
			require.NotNil(t, data)
			require.NotNil(t, data.BuyerReportingURI)
			assert.Equal(t, buyerURI, *data.BuyerReportingURI)
			// Component seller URI was never set and stays absent, not "".
			assert.Nil(t, data.ComponentSellerReportingURI)
		})

		t.Run("PersistReportingDataRejectsEmptyPayload", func(t *testing.T) {
			err := repo.PersistReportingData(ctx, 100, &models.ReportingPayload{})
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrMissingReportingURIs)
		})

		t.Run("ReportingComputationInfoVariant", func(t *testing.T) {
			created, err := repo.PersistInitialization(ctx, testingutil.NewAdSelectionInitialization(102, "seller.example", "com.example.app"))
			require.NoError(t, err)
			require.True(t, created)

			require.NoError(t, repo.PersistReportingData(ctx, 102, &models.ReportingPayload{
				Computation: &models.ReportingComputation{
					BuyerDecisionLogicJS: "function reportWin() {}",
					BiddingLogicURI:      "https://buyer.example/bidding.js",
					WinningAdRenderURI:   "https://buyer.example/ads/9",
					WinningAdBid:         3.5,
				},
			}))

			exists, err := repo.ReportingComputationInfoExists(ctx, 102)
			require.NoError(t, err)
			assert.True(t, exists)

			info, err := repo.GetReportingComputationInfo(ctx, 102)
			require.NoError(t, err)
			require.NotNil(t, info)
			assert.Equal(t, 3.5, info.WinningAdBid)

			// No URI row was written for the computation variant.
			data, err := repo.GetReportingData(ctx, 102)
			require.NoError(t, err)
			assert.Nil(t, data)
		})

		t.Run("HistogramInfoFromResultRow", func(t *testing.T) {
			info, err := repo.HistogramInfo(ctx, 100, "com.example.app")
			require.NoError(t, err)
			require.NotNil(t, info)
			assert.Equal(t, "buyer.example", info.Buyer)
		})

		t.Run("HistogramInfoWithoutResultRow", func(t *testing.T) {
			info, err := repo.HistogramInfo(ctx, 102, "com.example.app")
			require.NoError(t, err)
			require.NotNil(t, info)
			assert.Empty(t, info.Buyer)
		})

		t.Run("HistogramInfoUnknownID", func(t *testing.T) {
			info, err := repo.HistogramInfo(ctx, 999, "com.example.app")
			assert.NoError(t, err)
			assert.Nil(t, info)
		})

		t.Run("HistogramInfoNeverAnswersFromLegacySchema", func(t *testing.T) {
			// 101 lives only in the legacy table.
			info, err := repo.HistogramInfo(ctx, 101, "com.example.app")
			assert.NoError(t, err)
			assert.Nil(t, info)
		})

		t.Run("RemoveExpiredCascades", func(t *testing.T) {
			init := testingutil.NewAdSelectionInitialization(103, "seller.example", "com.example.app")
			init.CreationInstant = utils.UTCNow().Add(-48 * time.Hour)
			created, err := repo.PersistInitialization(ctx, init)
			require.NoError(t, err)
			require.True(t, created)
			require.NoError(t, repo.PersistResult(ctx, testingutil.NewAdSelectionResult(103, "buyer.example")))

			require.NoError(t, repo.RemoveExpired(ctx, utils.UTCNow().Add(-24*time.Hour)))

			exists, err := repo.InitializationExists(ctx, 103)
			require.NoError(t, err)
			assert.False(t, exists)

			// The result row went with it.
			bidAndURI, err := repo.GetWinningBidAndURI(ctx, 103)
			require.NoError(t, err)
			assert.Nil(t, bidAndURI)

			// Fresh rows survive.
			exists, err = repo.InitializationExists(ctx, 100)
			require.NoError(t, err)
			assert.True(t, exists)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestRegisteredAdInteractionRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewRegisteredAdInteractionRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("RegisterAndList", func(t *testing.T) {
			interactions := testingutil.NewRegisteredAdInteractions(1, models.ReportingDestinationSeller, 2)
			require.NoError(t, repo.Register(ctx, interactions))

			listed, err := repo.List(ctx, 1, models.ReportingDestinationSeller)
			require.NoError(t, err)
			assert.Len(t, listed, 2)
		})

		t.Run("GetURI", func(t *testing.T) {
			uri, err := repo.GetURI(ctx, 1, "click_0", models.ReportingDestinationSeller)
			require.NoError(t, err)
			assert.Equal(t, "https://reporting.example/1/0", uri)

			uri, err = repo.GetURI(ctx, 1, "hover", models.ReportingDestinationSeller)
			require.NoError(t, err)
			assert.Empty(t, uri)
		})

		t.Run("RegisterSafelyCommitsPrefixUpToTableCap", func(t *testing.T) {
			// Two rows exist; a table cap of 3 leaves room for exactly one.
			batch := testingutil.NewRegisteredAdInteractions(2, models.ReportingDestinationBuyer, 2)
			require.NoError(t, repo.RegisterSafely(ctx, 2, batch, 3, 10, models.ReportingDestinationBuyer))

			total, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)

			listed, err := repo.List(ctx, 2, models.ReportingDestinationBuyer)
			require.NoError(t, err)
			require.Len(t, listed, 1)
			// Input order decides which registration survives.
			assert.Equal(t, "click_0", listed[0].InteractionKey)
		})

		t.Run("RegisterSafelySkipsBatchWhenTableFull", func(t *testing.T) {
			batch := testingutil.NewRegisteredAdInteractions(3, models.ReportingDestinationSeller, 1)
			require.NoError(t, repo.RegisterSafely(ctx, 3, batch, 3, 10, models.ReportingDestinationSeller))

			listed, err := repo.List(ctx, 3, models.ReportingDestinationSeller)
			require.NoError(t, err)
			assert.Empty(t, listed)
		})

		t.Run("RegisterSafelyHonorsPerDestinationCap", func(t *testing.T) {
			// Destination already holds one registration for id 2; a
			// per-destination cap of 1 rejects the whole batch.
			batch := testingutil.NewRegisteredAdInteractions(2, models.ReportingDestinationBuyer, 2)
			require.NoError(t, repo.RegisterSafely(ctx, 2, batch, 100, 1, models.ReportingDestinationBuyer))

			count, err := repo.CountPerDestination(ctx, 2, models.ReportingDestinationBuyer)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("RemoveExpiredDropsDanglingRegistrations", func(t *testing.T) {
			// None of the registered ids exist in the legacy table.
			require.NoError(t, repo.RemoveExpired(ctx))

			total, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), total)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestEncryptionKeyRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewEncryptionKeyRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		const coordinatorA = "https://coordinator-a.example"
		const coordinatorB = "https://coordinator-b.example"

		t.Run("InsertReplacesOnNaturalKey", func(t *testing.T) {
			key := testingutil.NewEncryptionKey(models.EncryptionKeyTypeAuction, coordinatorA, 3600)
			require.NoError(t, repo.Insert(ctx, key))

			refetched := &models.EncryptionKey{
				KeyType:          key.KeyType,
				CoordinatorURL:   key.CoordinatorURL,
				KeyIdentifier:    key.KeyIdentifier,
				PublicKey:        "BBBB",
				CreationInstant:  utils.UTCNow(),
				ExpiryTTLSeconds: 7200,
			}
			require.NoError(t, repo.Insert(ctx, refetched))

			keys, err := repo.LatestExpiryNKeys(ctx, models.EncryptionKeyTypeAuction, coordinatorA, 10)
			require.NoError(t, err)
			require.Len(t, keys, 1)
			assert.Equal(t, "BBBB", keys[0].PublicKey)
		})

		t.Run("LatestExpiryOrderingAndLimit", func(t *testing.T) {
			for _, ttl := range []int64{100, 300, 200} {
				require.NoError(t, repo.Insert(ctx, testingutil.NewEncryptionKey(models.EncryptionKeyTypeJoin, coordinatorA, ttl)))
			}

			keys, err := repo.LatestExpiryNKeys(ctx, models.EncryptionKeyTypeJoin, coordinatorA, 2)
			require.NoError(t, err)
			require.Len(t, keys, 2)
			assert.Equal(t, int64(300), keys[0].ExpiryTTLSeconds)
			assert.Equal(t, int64(200), keys[1].ExpiryTTLSeconds)
		})

		t.Run("CoordinatorsArePartitioned", func(t *testing.T) {
			require.NoError(t, repo.Insert(ctx, testingutil.NewEncryptionKey(models.EncryptionKeyTypeAuction, coordinatorB, 3600)))

			keysA, err := repo.LatestExpiryNKeys(ctx, models.EncryptionKeyTypeAuction, coordinatorA, 10)
			require.NoError(t, err)
			keysB, err := repo.LatestExpiryNKeys(ctx, models.EncryptionKeyTypeAuction, coordinatorB, 10)
			require.NoError(t, err)

			assert.Len(t, keysA, 1)
			assert.Len(t, keysB, 1)
			assert.NotEqual(t, keysA[0].KeyIdentifier, keysB[0].KeyIdentifier)
		})

		t.Run("ActiveKeysExcludeExpired", func(t *testing.T) {
			expired := testingutil.NewEncryptionKey(models.EncryptionKeyTypeQuery, coordinatorA, 60)
			expired.CreationInstant = utils.UTCNow().Add(-time.Hour)
			require.NoError(t, repo.Insert(ctx, expired))
			require.NoError(t, repo.Insert(ctx, testingutil.NewEncryptionKey(models.EncryptionKeyTypeQuery, coordinatorA, 3600)))

			active, err := repo.LatestExpiryNActiveKeys(ctx, models.EncryptionKeyTypeQuery, coordinatorA, utils.UTCNow(), 10)
			require.NoError(t, err)
			assert.Len(t, active, 1)

			all, err := repo.LatestExpiryNKeys(ctx, models.EncryptionKeyTypeQuery, coordinatorA, 10)
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})

		t.Run("DeleteExpiredKeysScopedToCoordinator", func(t *testing.T) {
			expiredB := testingutil.NewEncryptionKey(models.EncryptionKeyTypeQuery, coordinatorB, 60)
			expiredB.CreationInstant = utils.UTCNow().Add(-time.Hour)
			require.NoError(t, repo.Insert(ctx, expiredB))

			deleted, err := repo.DeleteExpiredKeys(ctx, models.EncryptionKeyTypeQuery, coordinatorA, utils.UTCNow())
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			// The other coordinator's expired key is untouched.
			remaining, err := repo.ExpiredKeys(ctx, models.EncryptionKeyTypeQuery, coordinatorB, utils.UTCNow())
			require.NoError(t, err)
			assert.Len(t, remaining, 1)
		})

		t.Run("DeleteAllExpiredKeys", func(t *testing.T) {
			deleted, err := repo.DeleteAllExpiredKeys(ctx, utils.UTCNow())
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestEncryptionContextRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewEncryptionContextRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		cutoff := utils.UTCNow()

		t.Run("PersistAndGet", func(t *testing.T) {
			require.NoError(t, repo.Persist(ctx, &models.EncryptionContext{
				ContextID:       1,
				KeyType:         models.EncryptionKeyTypeAuction,
				KeyConfig:       "config-1",
				SharedSecret:    []byte("secret"),
				CreationInstant: cutoff,
			}))

			found, err := repo.GetContext(ctx, 1, models.EncryptionKeyTypeAuction)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "config-1", found.KeyConfig)
			assert.Equal(t, []byte("secret"), found.SharedSecret)
		})

		t.Run("GetContextIsKeyTypeScoped", func(t *testing.T) {
			found, err := repo.GetContext(ctx, 1, models.EncryptionKeyTypeJoin)
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("RemoveExpiredIsStrict", func(t *testing.T) {
			require.NoError(t, repo.Persist(ctx, &models.EncryptionContext{
				ContextID:       2,
				KeyType:         models.EncryptionKeyTypeAuction,
				KeyConfig:       "config-2",
				CreationInstant: cutoff.Add(-time.Hour),
			}))

			deleted, err := repo.RemoveExpired(ctx, cutoff)
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			// The row created exactly at the cutoff survives.
			kept, err := repo.GetContext(ctx, 1, models.EncryptionKeyTypeAuction)
			require.NoError(t, err)
			assert.NotNil(t, kept)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestOverrideRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewOverrideRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("PersistAndGetScoped", func(t *testing.T) {
			require.NoError(t, repo.PersistAdSelectionOverride(ctx, &models.AdSelectionOverride{
				AdSelectionConfigID:   "config-1",
				AppPackageName:        "com.example.app",
				DecisionLogicJS:       "function scoreAd() {}",
				TrustedScoringSignals: `{"signals": true}`,
			}))

			logic, err := repo.GetDecisionLogicOverride(ctx, "config-1", "com.example.app")
			require.NoError(t, err)
			assert.Equal(t, "function scoreAd() {}", logic)

			signals, err := repo.GetTrustedScoringSignalsOverride(ctx, "config-1", "com.example.app")
			require.NoError(t, err)
			assert.Equal(t, `{"signals": true}`, signals)
		})

		t.Run("OverridesNeverLeakAcrossPackages", func(t *testing.T) {
			logic, err := repo.GetDecisionLogicOverride(ctx, "config-1", "com.other.app")
			require.NoError(t, err)
			assert.Empty(t, logic)
		})

		t.Run("PersistReplacesExisting", func(t *testing.T) {
			require.NoError(t, repo.PersistAdSelectionOverride(ctx, &models.AdSelectionOverride{
				AdSelectionConfigID:   "config-1",
				AppPackageName:        "com.example.app",
				DecisionLogicJS:       "function scoreAdV2() {}",
				TrustedScoringSignals: "{}",
			}))

			logic, err := repo.GetDecisionLogicOverride(ctx, "config-1", "com.example.app")
			require.NoError(t, err)
			assert.Equal(t, "function scoreAdV2() {}", logic)
		})

		t.Run("BuyerDecisionOverrides", func(t *testing.T) {
			require.NoError(t, repo.PersistBuyerDecisionOverride(ctx, &models.BuyerDecisionOverride{
				AdSelectionConfigID: "config-1",
				Buyer:               "buyer-a.example",
				AppPackageName:      "com.example.app",
				DecisionLogic:       "function generateBidA() {}",
			}))
			require.NoError(t, repo.PersistBuyerDecisionOverride(ctx, &models.BuyerDecisionOverride{
				AdSelectionConfigID: "config-1",
				Buyer:               "buyer-b.example",
				AppPackageName:      "com.example.app",
				DecisionLogic:       "function generateBidB() {}",
			}))

			overrides, err := repo.GetBuyerDecisionOverrides(ctx, "config-1", "com.example.app")
			require.NoError(t, err)
			assert.Len(t, overrides, 2)
		})

		t.Run("FromOutcomesOverride", func(t *testing.T) {
			require.NoError(t, repo.PersistFromOutcomesOverride(ctx, &models.AdSelectionFromOutcomesOverride{
				AdSelectionFromOutcomesConfigID: "outcomes-1",
				AppPackageName:                  "com.example.app",
				SelectionLogicJS:                "function selectOutcome() {}",
				SelectionSignals:                "{}",
			}))

			exists, err := repo.FromOutcomesOverrideExists(ctx, "outcomes-1", "com.example.app")
			require.NoError(t, err)
			assert.True(t, exists)

			logic, err := repo.GetSelectionLogicOverride(ctx, "outcomes-1", "com.example.app")
			require.NoError(t, err)
			assert.Equal(t, "function selectOutcome() {}", logic)
		})

		t.Run("RemoveAllOverridesForPackage", func(t *testing.T) {
			require.NoError(t, repo.RemoveAllOverridesForPackage(ctx, "com.example.app"))

			exists, err := repo.AdSelectionOverrideExists(ctx, "config-1", "com.example.app")
			require.NoError(t, err)
			assert.False(t, exists)

			overrides, err := repo.GetBuyerDecisionOverrides(ctx, "config-1", "com.example.app")
			require.NoError(t, err)
			assert.Empty(t, overrides)

			exists, err = repo.FromOutcomesOverrideExists(ctx, "outcomes-1", "com.example.app")
			require.NoError(t, err)
			assert.False(t, exists)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestConsentedDebugConfigurationRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewConsentedDebugConfigurationRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("GetActiveOrdersByCreation", func(t *testing.T) {
			older := testingutil.NewConsentedDebugConfiguration(time.Hour)
			older.CreationTimestamp = utils.UTCNow().Add(-time.Hour)
			require.NoError(t, repo.Persist(ctx, older))

			newer := testingutil.NewConsentedDebugConfiguration(time.Hour)
			require.NoError(t, repo.Persist(ctx, newer))

			active, err := repo.GetActive(ctx, utils.UTCNow(), 1)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, newer.DebugToken, active[0].DebugToken)
		})

		t.Run("GetActiveExcludesExpiredAndUnconsented", func(t *testing.T) {
			expired := testingutil.NewConsentedDebugConfiguration(-time.Hour)
			require.NoError(t, repo.Persist(ctx, expired))

			unconsented := testingutil.NewConsentedDebugConfiguration(time.Hour)
			unconsented.IsConsentProvided = utils.ToPtr(false)
			require.NoError(t, repo.Persist(ctx, unconsented))

			active, err := repo.GetActive(ctx, utils.UTCNow(), 10)
			require.NoError(t, err)
			assert.Len(t, active, 2)
		})

		t.Run("DeleteExistingThenPersistLeavesOneRow", func(t *testing.T) {
			replacement := testingutil.NewConsentedDebugConfiguration(time.Hour)
			require.NoError(t, repo.DeleteExistingThenPersist(ctx, replacement))

			active, err := repo.GetActive(ctx, utils.UTCNow(), 10)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, replacement.DebugToken, active[0].DebugToken)
		})

		t.Run("DeleteExpired", func(t *testing.T) {
			expired := testingutil.NewConsentedDebugConfiguration(-time.Minute)
			require.NoError(t, repo.Persist(ctx, expired))

			deleted, err := repo.DeleteExpired(ctx, utils.UTCNow())
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAppInstallPermissionRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewAppInstallPermissionRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("SetAdTechsForPackage", func(t *testing.T) {
			require.NoError(t, repo.SetAdTechsForPackage(ctx, "com.example.app", []string{"buyer-a.example", "buyer-b.example"}))

			can, err := repo.CanBuyerFilterPackage(ctx, "buyer-a.example", "com.example.app")
			require.NoError(t, err)
			assert.True(t, can)

			can, err = repo.CanBuyerFilterPackage(ctx, "buyer-c.example", "com.example.app")
			require.NoError(t, err)
			assert.False(t, can)
		})

		t.Run("SetReplacesAtomically", func(t *testing.T) {
			require.NoError(t, repo.SetAdTechsForPackage(ctx, "com.example.app", []string{"buyer-c.example"}))

			buyers, err := repo.GetBuyersForPackage(ctx, "com.example.app")
			require.NoError(t, err)
			assert.Equal(t, []string{"buyer-c.example"}, buyers)
		})

		t.Run("EmptyBuyerListClearsPackage", func(t *testing.T) {
			require.NoError(t, repo.SetAdTechsForPackage(ctx, "com.example.app", nil))

			buyers, err := repo.GetBuyersForPackage(ctx, "com.example.app")
			require.NoError(t, err)
			assert.Empty(t, buyers)
		})

		return nil
	})
	require.NoError(t, err)
}
