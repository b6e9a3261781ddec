package agents

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/riskops/triage/domain/transaction"
)

// riskSignalsDataStore is the Data Store surface RiskSignals needs: the
// 90-day transaction history plus the suspect transaction itself.
type riskSignalsDataStore interface {
	ListTransactionsSince(ctx context.Context, customerID string, since time.Time, limit int) ([]transaction.Transaction, error)
	GetTransaction(ctx context.Context, txnID string) (transaction.Transaction, error)
}

const (
	riskHistoryWindow  = 90 * 24 * time.Hour
	riskVelocityWindow = 24 * time.Hour
	riskHistoryLimit   = 2000
	commonHourRatio    = 0.05

	// $1000 / $500 equivalents at a 2-decimal-place minor unit (cents).
	thresholdAmount1000 int64 = 100_000
	thresholdAmount500  int64 = 50_000
)

var (
	highRiskMCC        = map[string]bool{"5960": true, "6051": true, "7995": true, "4829": true}
	suspiciousMerchant = regexp.MustCompile(`(?i)temp|test|unknown|cash|atm`)
)

// RiskSignals computes a composite risk score over the last 90 days of
// transactions (spec.md §4.4).
type RiskSignals struct {
	store   riskSignalsDataStore
	timeout time.Duration
}

func NewRiskSignals(store riskSignalsDataStore, timeout time.Duration) *RiskSignals {
	return &RiskSignals{store: store, timeout: timeout}
}

func (r *RiskSignals) Name() string           { return StepRiskSignals }
func (r *RiskSignals) Critical() bool         { return false }
func (r *RiskSignals) Timeout() time.Duration { return r.timeout }

func (r *RiskSignals) Run(rc *RunContext) (Result, error) {
	suspect, err := r.store.GetTransaction(rc.Context, rc.SuspectTxnID)
	if err != nil {
		return nil, err
	}

	windowStart := suspect.TS.Add(-riskHistoryWindow)
	history, err := r.store.ListTransactionsSince(rc.Context, rc.CustomerID, windowStart, riskHistoryLimit)
	if err != nil {
		return nil, err
	}

	result := computeRiskSignals(suspect, history)
	rc.RiskSignals = result
	return result, nil
}

// computeRiskSignals is a pure function over the suspect transaction and
// its 90-day history, separated from Run for direct unit testing.
func computeRiskSignals(suspect transaction.Transaction, history []transaction.Transaction) *RiskSignalsResult {
	velocityStart := suspect.TS.Add(-riskVelocityWindow)

	var last24h, remaining89 []transaction.Transaction
	for _, t := range history {
		if t.ID == suspect.ID {
			continue
		}
		if !t.TS.Before(velocityStart) && t.TS.Before(suspect.TS) {
			last24h = append(last24h, t)
		} else {
			remaining89 = append(remaining89, t)
		}
	}

	var amount24h int64
	for _, t := range last24h {
		amount24h += t.AmountMinorUnits
	}

	historicalDaily := float64(len(remaining89)) / 89.0

	devices := map[string]bool{}
	merchants := map[string]bool{}
	locations := map[string]bool{}
	hourCounts := map[int]int{}
	for _, t := range remaining89 {
		if t.DeviceID != "" {
			devices[t.DeviceID] = true
		}
		merchants[t.Merchant] = true
		if t.Country != "" || t.City != "" {
			locations[t.Country+"|"+t.City] = true
		}
		hourCounts[t.TS.Hour()]++
	}

	commonHours := map[int]bool{}
	for hour, count := range hourCounts {
		if len(remaining89) > 0 && float64(count)/float64(len(remaining89)) >= commonHourRatio {
			commonHours[hour] = true
		}
	}

	newDevice := suspect.DeviceID != "" && !devices[suspect.DeviceID]
	newMerchant := !merchants[suspect.Merchant]

	merchantRisk := MerchantRisk{NewMerchant: newMerchant}
	if highRiskMCC[suspect.MCC] {
		merchantRisk.RiskScore += 30
	}
	if suspiciousMerchant.MatchString(suspect.Merchant) {
		merchantRisk.RiskScore += 20
	}
	if newMerchant {
		merchantRisk.RiskScore += 15
	}
	if merchantRisk.RiskScore > 100 {
		merchantRisk.RiskScore = 100
	}

	hour := suspect.TS.Hour()
	unusualTime := (hour < 6 || hour > 23) && !commonHours[hour]

	unusualLocation := false
	if len(locations) > 0 && (suspect.Country != "" || suspect.City != "") {
		unusualLocation = !locations[suspect.Country+"|"+suspect.City]
	}

	last10 := lastNByTime(remaining89, 10)
	var mean10 float64
	if len(last10) > 0 {
		var sum int64
		for _, t := range last10 {
			sum += t.AmountMinorUnits
		}
		mean10 = float64(sum) / float64(len(last10))
	}
	velocitySpike := mean10 > 0 && float64(suspect.AmountMinorUnits) > 3*mean10

	score := 0
	var reasons []string

	if historicalDaily > 0 {
		count24h := float64(len(last24h))
		if count24h > 3*historicalDaily {
			score += 25
			reasons = append(reasons, "transaction_velocity_spike_24h")
		} else if count24h > 2*historicalDaily {
			score += 15
			reasons = append(reasons, "elevated_transaction_velocity_24h")
		}
	}
	if amount24h > thresholdAmount1000 {
		score += 20
		reasons = append(reasons, "high_amount_velocity_24h")
	}
	if newDevice {
		score += 20
		reasons = append(reasons, "new_device")
	}
	if len(devices) > 5 {
		score += 10
		reasons = append(reasons, "frequent_device_changes")
	}
	score += int(0.5 * float64(merchantRisk.RiskScore))
	if merchantRisk.RiskScore > 0 {
		reasons = append(reasons, "elevated_merchant_risk")
	}
	if unusualTime {
		score += 15
		reasons = append(reasons, "unusual_time")
	}
	if unusualLocation {
		score += 20
		reasons = append(reasons, "unusual_location")
	}
	if velocitySpike {
		score += 25
		reasons = append(reasons, "velocity_spike_amount")
	}
	if suspect.AmountMinorUnits > thresholdAmount500 {
		score += 15
		reasons = append(reasons, "high_suspect_amount")
	}
	if suspect.AmountMinorUnits > thresholdAmount1000 {
		score += 10
		reasons = append(reasons, "very_high_suspect_amount")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no_significant_signals")
	}

	proposedAction := "monitor"
	switch {
	case score >= 80:
		proposedAction = "freeze_card"
	case score >= 50:
		proposedAction = "open_dispute"
	}

	return &RiskSignalsResult{
		Score:              score,
		Reasons:            reasons,
		ProposedAction:     proposedAction,
		SuspectAmountMinor: suspect.AmountMinorUnits,
		Txns24h:         len(last24h),
		Amount24hMinor:  amount24h,
		HistoricalDaily: historicalDaily,
		NewDevice:       newDevice,
		DeviceChanges:   len(devices),
		Merchant:        merchantRisk,
		UnusualTime:     unusualTime,
		UnusualLocation: unusualLocation,
		VelocitySpike:   velocitySpike,
	}
}

// lastNByTime returns up to n transactions from txns ordered most-recent
// first, without mutating the input slice.
func lastNByTime(txns []transaction.Transaction, n int) []transaction.Transaction {
	sorted := make([]transaction.Transaction, len(txns))
	copy(sorted, txns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TS.After(sorted[j].TS) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// FallbackRiskSignals is the deterministic substitute used when this step
// fails (spec.md §4.6).
func FallbackRiskSignals() *RiskSignalsResult {
	return &RiskSignalsResult{
		Score:    50,
		Reasons:  []string{"risk_analysis_unavailable"},
		Fallback: true,
	}
}
