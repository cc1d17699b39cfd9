package model

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Ratio is a float display value that may legitimately be +Inf.
// It marshals +Inf as the JSON string "Infinity" because JSON has no infinity literal.
type Ratio float64

// MarshalJSON implements json.Marshaler.
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte("0"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Infinity"`:
		*r = Ratio(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*r = Ratio(math.Inf(-1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// TradeStats aggregates realized SELL results.
// WinRate is a percentage. ProfitFactor is +Inf when there are wins and no losses.
type TradeStats struct {
	TradeCount    int             `json:"tradeCount"`
	Wins          int             `json:"wins"`
	Losses        int             `json:"losses"`
	TotalWin      decimal.Decimal `json:"totalWin"`
	TotalLoss     decimal.Decimal `json:"totalLoss"`
	NetRealizedPL decimal.Decimal `json:"netRealizedPL"`
	WinRate       float64         `json:"winRate"`
	ProfitFactor  Ratio           `json:"profitFactor"`
}

// PeriodPerformance is the trade statistics of one calendar period.
type PeriodPerformance struct {
	Period string     `json:"period"`
	Stats  TradeStats `json:"stats"`
}

// TimePerformanceReport slices realized trade statistics by asset type and calendar period.
type TimePerformanceReport struct {
	Method      string                `json:"method"`
	Overall     TradeStats            `json:"overall"`
	ByAssetType map[string]TradeStats `json:"byAssetType"`
	Yearly      []PeriodPerformance   `json:"yearly"`
	Quarterly   []PeriodPerformance   `json:"quarterly"`
	Monthly     []PeriodPerformance   `json:"monthly"`
	Errors      []string              `json:"errors,omitempty"`
}

// Trade status values for TradeRecord.
const (
	TradeStatusClosed = "CLOSED"
	TradeStatusOpen   = "OPEN"
)

// TradeRecord is one closed lot match or one still open lot.
// For open trades ExitDate is the valuation date and PL is unrealized.
type TradeRecord struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	EntryDate   time.Time       `json:"entryDate"`
	ExitDate    time.Time       `json:"exitDate"`
	EntryPrice  decimal.Decimal `json:"entryPrice"`
	ExitPrice   decimal.Decimal `json:"exitPrice"`
	PL          decimal.Decimal `json:"pl"`
	HoldingDays int             `json:"holdingDays"`
	Status      string          `json:"status"`
	MFE         decimal.Decimal `json:"mfe"`
	MAE         decimal.Decimal `json:"mae"`
	Efficiency  float64         `json:"efficiency"`
}

// BehavioralMetrics summarizes holding behaviour of winners and losers.
type BehavioralMetrics struct {
	AvgHoldingDaysWinners     float64 `json:"avgHoldingDaysWinners"`
	AvgHoldingDaysLosers      float64 `json:"avgHoldingDaysLosers"`
	AvgHoldingDaysWinnersOpen float64 `json:"avgHoldingDaysWinnersOpen"`
	AvgHoldingDaysLosersOpen  float64 `json:"avgHoldingDaysLosersOpen"`
	TotalWinners              int     `json:"totalWinners"`
	TotalLosers               int     `json:"totalLosers"`
	OpenWinners               int     `json:"openWinners"`
	OpenLosers                int     `json:"openLosers"`
}

// BehavioralAnalytics is the trade list plus its holding-behaviour metrics.
type BehavioralAnalytics struct {
	Metrics BehavioralMetrics `json:"metrics"`
	Trades  []TradeRecord     `json:"trades"`
}
