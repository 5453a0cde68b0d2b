// Package models contains domain entities and persistence models for the ad selection storage system
package models

// BuyerDecisionLogic holds the buyer-supplied bidding JS keyed by the URI it
// was fetched from. Rows are garbage collected once no ad selection record
// references the URI.
type BuyerDecisionLogic struct {
	BiddingLogicURI      string `gorm:"column:bidding_logic_uri;primaryKey;size:400" json:"bidding_logic_uri" validate:"required"`
	BuyerDecisionLogicJS string `gorm:"column:buyer_decision_logic_js;type:text;not null" json:"buyer_decision_logic_js"`
}

func (BuyerDecisionLogic) TableName() string {
	return "buyer_decision_logic"
}

// BuyerDecisionLogicFilter represents filter criteria for decision logic queries
type BuyerDecisionLogicFilter struct {
	BiddingLogicURI *string
}
