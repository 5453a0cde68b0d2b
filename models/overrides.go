// Package models contains domain entities and persistence models for the ad selection storage system
package models

// AdSelectionOverride is a developer override for decision logic and trusted
// scoring signals, scoped by (config id, caller package). Overrides set by
// one caller package are invisible to every other package.
type AdSelectionOverride struct {
	AdSelectionConfigID   string `gorm:"column:ad_selection_config_id;primaryKey;size:255" json:"ad_selection_config_id" validate:"required"`
	AppPackageName        string `gorm:"column:app_package_name;primaryKey;size:255" json:"app_package_name" validate:"required"`
	DecisionLogicJS       string `gorm:"column:decision_logic_js;type:text;not null" json:"decision_logic_js"`
	TrustedScoringSignals string `gorm:"column:trusted_scoring_signals;type:text;not null" json:"trusted_scoring_signals"`
}

func (AdSelectionOverride) TableName() string {
	return "ad_selection_overrides"
}

// BuyerDecisionOverride is a per-buyer developer override of bidding logic
// scoped by (config id, buyer, caller package).
type BuyerDecisionOverride struct {
	AdSelectionConfigID string `gorm:"column:ad_selection_config_id;primaryKey;size:255" json:"ad_selection_config_id" validate:"required"`
	Buyer               string `gorm:"column:buyer;primaryKey;size:255" json:"buyer" validate:"required"`
	AppPackageName      string `gorm:"column:app_package_name;primaryKey;size:255" json:"app_package_name" validate:"required"`
	DecisionLogic       string `gorm:"column:decision_logic;type:text;not null" json:"decision_logic"`
}

func (BuyerDecisionOverride) TableName() string {
	return "buyer_decision_overrides"
}

// AdSelectionFromOutcomesOverride is the developer override for the
// select-ads-from-outcomes flow, scoped like AdSelectionOverride.
type AdSelectionFromOutcomesOverride struct {
	AdSelectionFromOutcomesConfigID string `gorm:"column:ad_selection_from_outcomes_config_id;primaryKey;size:255" json:"ad_selection_from_outcomes_config_id" validate:"required"`
	AppPackageName                  string `gorm:"column:app_package_name;primaryKey;size:255" json:"app_package_name" validate:"required"`
	SelectionLogicJS                string `gorm:"column:selection_logic_js;type:text;not null" json:"selection_logic_js"`
	SelectionSignals                string `gorm:"column:selection_signals;type:text;not null" json:"selection_signals"`
}

func (AdSelectionFromOutcomesOverride) TableName() string {
	return "ad_selection_from_outcomes_overrides"
}

// OverrideFilter represents filter criteria for override queries
type OverrideFilter struct {
	ConfigID       *string
	AppPackageName *string
	Buyer          *string
}
