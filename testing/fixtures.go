// Package testing provides test utilities and database setup for testing the ad selection storage system
package testing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amirphl/Ame-no-Murakumo/models"
	"github.com/amirphl/Ame-no-Murakumo/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// NewRemarketingAdSelection builds a legacy record backed by a custom
// audience. Not persisted.
func NewRemarketingAdSelection(adSelectionID int64, buyer string) *models.AdSelection {
	signals, _ := models.EncodeCustomAudienceSignals(&models.CustomAudienceSignals{
		Owner:          "com.example.app",
		Buyer:          buyer,
		Name:           "shoes",
		ActivationTime: utils.UTCNow().Unix(),
		ExpirationTime: utils.UTCNowAdd(24 * time.Hour).Unix(),
	})

	return &models.AdSelection{
		AdSelectionID:         adSelectionID,
		CustomAudienceSignals: signals,
		BiddingLogicURI:       fmt.Sprintf("https://%s/bidding.js", buyer),
		WinningAdRenderURI:    fmt.Sprintf("https://%s/ads/1", buyer),
		WinningAdBid:          1.5,
		CreationTimestamp:     utils.UTCNow(),
		CallerPackageName:     "com.example.app",
	}
}

// NewContextualAdSelection builds a legacy record with no custom audience
// signals. Not persisted.
func NewContextualAdSelection(adSelectionID int64, buyer string) *models.AdSelection {
	return &models.AdSelection{
		AdSelectionID:      adSelectionID,
		BiddingLogicURI:    fmt.Sprintf("https://%s/bidding.js", buyer),
		WinningAdRenderURI: fmt.Sprintf("https://%s/ads/2", buyer),
		WinningAdBid:       0.7,
		CreationTimestamp:  utils.UTCNow(),
		CallerPackageName:  "com.example.app",
	}
}

// NewBuyerDecisionLogic builds a decision logic row for a bidding logic URI
func NewBuyerDecisionLogic(biddingLogicURI string) *models.BuyerDecisionLogic {
	return &models.BuyerDecisionLogic{
		BiddingLogicURI:      biddingLogicURI,
		BuyerDecisionLogicJS: "function reportWin() { return; }",
	}
}

// NewAdSelectionInitialization builds a unified-schema parent row
func NewAdSelectionInitialization(adSelectionID int64, seller, callerPackage string) *models.AdSelectionInitialization {
	return &models.AdSelectionInitialization{
		AdSelectionID:     adSelectionID,
		CreationInstant:   utils.UTCNow(),
		Seller:            seller,
		CallerPackageName: callerPackage,
	}
}

// NewAdSelectionResult builds a unified-schema result row for an existing
// initialization.
func NewAdSelectionResult(adSelectionID int64, buyer string) *models.AdSelectionResult {
	name := "shoes"
	owner := "com.example.app"
	return &models.AdSelectionResult{
		AdSelectionID:              adSelectionID,
		WinningBuyer:               buyer,
		WinningAdBid:               2.25,
		WinningAdRenderURI:         fmt.Sprintf("https://%s/ads/3", buyer),
		WinningCustomAudienceName:  &name,
		WinningCustomAudienceOwner: &owner,
	}
}

// NewRegisteredAdInteractions builds n interaction registrations for one id
// and destination, with distinct keys.
func NewRegisteredAdInteractions(adSelectionID int64, destination, n int) []*models.RegisteredAdInteraction {
	interactions := make([]*models.RegisteredAdInteraction, 0, n)
	for i := 0; i < n; i++ {
		interactions = append(interactions, &models.RegisteredAdInteraction{
			AdSelectionID:           adSelectionID,
			InteractionKey:          fmt.Sprintf("click_%d", i),
			Destination:             destination,
			InteractionReportingURI: fmt.Sprintf("https://reporting.example/%d/%d", adSelectionID, i),
		})
	}
	return interactions
}

// NewEncryptionKey builds a key of the given type and coordinator with a
// random identifier and the given TTL.
func NewEncryptionKey(keyType int, coordinatorURL string, ttlSeconds int64) *models.EncryptionKey {
	return &models.EncryptionKey{
		KeyType:          keyType,
		CoordinatorURL:   coordinatorURL,
		KeyIdentifier:    uuid.NewString(),
		PublicKey:        "AAAA" + uuid.NewString(),
		CreationInstant:  utils.UTCNow(),
		ExpiryTTLSeconds: ttlSeconds,
	}
}

// NewConsentedDebugConfiguration builds an active configuration expiring
// after the given duration.
func NewConsentedDebugConfiguration(expiresIn time.Duration) *models.ConsentedDebugConfiguration {
	return &models.ConsentedDebugConfiguration{
		IsConsentProvided: utils.ToPtr(true),
		DebugToken:        uuid.NewString(),
		CreationTimestamp: utils.UTCNow(),
		ExpiryTimestamp:   utils.UTCNowAdd(expiresIn),
	}
}
