// Package models contains domain entities and persistence models for the ad selection storage system
package models

import (
	"time"
)

// AdSelectionEntry is the read-only join of an AdSelection row with its
// BuyerDecisionLogic row on bidding_logic_uri. It is never persisted.
type AdSelectionEntry struct {
	AdSelectionID           int64
	CustomAudienceSignals   *string
	BuyerContextualSignals  *string
	SellerContextualSignals *string
	BiddingLogicURI         string
	WinningAdRenderURI      string
	WinningAdBid            float64
	CreationTimestamp       time.Time
	CallerPackageName       string
	BuyerDecisionLogicJS    *string
	AdCounterIntKeys        *string
}

// NewAdSelectionEntry builds the join view and rejects contradictory
// combinations: a contextual entry (no custom audience signals) must not
// carry buyer decision logic JS.
func NewAdSelectionEntry(adSelection *AdSelection, decisionLogicJS *string) (*AdSelectionEntry, error) {
	if adSelection == nil {
		return nil, ErrMissingAdSelection
	}
	if adSelection.IsContextual() && decisionLogicJS != nil {
		return nil, ErrContextualEntryWithDecisionLogic
	}
	return &AdSelectionEntry{
		AdSelectionID:           adSelection.AdSelectionID,
		CustomAudienceSignals:   adSelection.CustomAudienceSignals,
		BuyerContextualSignals:  adSelection.BuyerContextualSignals,
		SellerContextualSignals: adSelection.SellerContextualSignals,
		BiddingLogicURI:         adSelection.BiddingLogicURI,
		WinningAdRenderURI:      adSelection.WinningAdRenderURI,
		WinningAdBid:            adSelection.WinningAdBid,
		CreationTimestamp:       adSelection.CreationTimestamp,
		CallerPackageName:       adSelection.CallerPackageName,
		BuyerDecisionLogicJS:    decisionLogicJS,
		AdCounterIntKeys:        adSelection.AdCounterIntKeys,
	}, nil
}

// IsContextual reports whether the entry has no custom audience signals.
func (e *AdSelectionEntry) IsContextual() bool {
	return e.CustomAudienceSignals == nil
}

// HistogramInfo is the frequency-cap read model for one ad selection:
// the winning buyer plus the ad counter keys the winning ad was tagged with.
type HistogramInfo struct {
	Buyer            string
	AdCounterIntKeys *string
}
