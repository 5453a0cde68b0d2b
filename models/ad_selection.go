// Package models contains domain entities and persistence models for the ad selection storage system
package models

import (
	"encoding/json"
	"time"
)

// AdSelection is a single completed on-device auction outcome, keyed by a
// caller-supplied 64-bit ad selection id. A remarketing record carries the
// winning custom audience signals together with the bidding logic URI; a
// contextual record has no custom audience signals but still requires the
// bidding logic URI. The decision logic JS itself is never embedded here,
// it is joined from BuyerDecisionLogic by bidding_logic_uri.
type AdSelection struct {
	AdSelectionID           int64     `gorm:"column:ad_selection_id;primaryKey;autoIncrement:false" json:"ad_selection_id" validate:"required"`
	CustomAudienceSignals   *string   `gorm:"column:custom_audience_signals;type:text" json:"custom_audience_signals,omitempty"`
	BuyerContextualSignals  *string   `gorm:"column:buyer_contextual_signals;type:text" json:"buyer_contextual_signals,omitempty"`
	SellerContextualSignals *string   `gorm:"column:seller_contextual_signals;type:text" json:"seller_contextual_signals,omitempty"`
	BiddingLogicURI         string    `gorm:"column:bidding_logic_uri;size:400;not null;index:idx_ad_selection_bidding_logic_uri" json:"bidding_logic_uri" validate:"required"`
	WinningAdRenderURI      string    `gorm:"column:winning_ad_render_uri;size:400" json:"winning_ad_render_uri"`
	WinningAdBid            float64   `gorm:"column:winning_ad_bid" json:"winning_ad_bid"`
	CreationTimestamp       time.Time `gorm:"column:creation_timestamp;not null;index:idx_ad_selection_creation_timestamp" json:"creation_timestamp"`
	CallerPackageName       string    `gorm:"column:caller_package_name;size:255;not null;index:idx_ad_selection_caller_package" json:"caller_package_name" validate:"required"`
	AdCounterIntKeys        *string   `gorm:"column:ad_counter_int_keys;type:text" json:"ad_counter_int_keys,omitempty"`
}

func (AdSelection) TableName() string {
	return "ad_selection"
}

// IsContextual reports whether the record was served directly by the seller
// rather than from a remarketing custom audience.
func (a *AdSelection) IsContextual() bool {
	return a.CustomAudienceSignals == nil
}

// SetAdCounterIntKeys normalizes the key set before persisting. An empty set
// is stored as absent, never as an empty JSON array.
func (a *AdSelection) SetAdCounterIntKeys(keys []int) error {
	if len(keys) == 0 {
		a.AdCounterIntKeys = nil
		return nil
	}
	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	encoded := string(raw)
	a.AdCounterIntKeys = &encoded
	return nil
}

// GetAdCounterIntKeys decodes the stored key set; absent yields nil.
func (a *AdSelection) GetAdCounterIntKeys() ([]int, error) {
	if a.AdCounterIntKeys == nil {
		return nil, nil
	}
	var keys []int
	if err := json.Unmarshal([]byte(*a.AdCounterIntKeys), &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// AdSelectionFilter represents filter criteria for ad selection queries
type AdSelectionFilter struct {
	AdSelectionID     *int64
	CallerPackageName *string
	BiddingLogicURI   *string
	CreatedBefore     *time.Time
	CreatedAfter      *time.Time
}

// CustomAudienceSignals is the JSON payload stored in the
// custom_audience_signals column of a remarketing record.
type CustomAudienceSignals struct {
	Owner              string `json:"owner"`
	Buyer              string `json:"buyer"`
	Name               string `json:"name"`
	ActivationTime     int64  `json:"activation_time"`
	ExpirationTime     int64  `json:"expiration_time"`
	UserBiddingSignals string `json:"user_bidding_signals,omitempty"`
}

// ParseCustomAudienceSignals decodes the signals column; nil input yields nil.
func ParseCustomAudienceSignals(raw *string) (*CustomAudienceSignals, error) {
	if raw == nil {
		return nil, nil
	}
	var signals CustomAudienceSignals
	if err := json.Unmarshal([]byte(*raw), &signals); err != nil {
		return nil, err
	}
	return &signals, nil
}

// EncodeCustomAudienceSignals encodes signals for storage.
func EncodeCustomAudienceSignals(signals *CustomAudienceSignals) (*string, error) {
	if signals == nil {
		return nil, nil
	}
	raw, err := json.Marshal(signals)
	if err != nil {
		return nil, err
	}
	encoded := string(raw)
	return &encoded, nil
}
