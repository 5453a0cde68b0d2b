package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/Ame-no-Murakumo/stats"
)

func TestPrometheusSinkBiddingStats(t *testing.T) {
	sink := NewPrometheusSink()

	before := testutil.CollectAndCount(biddingRunLatency)
	sink.LogBiddingProcessStats(stats.BiddingProcessStats{
		NumOfAdsEnteringBidding:           10,
		RunAdBiddingPerCALatencyMillis:    120,
		RunAdBiddingPerCAResultCode:       stats.StatusSuccess,
		GetBuyerDecisionLogicLatencyMilli: stats.FieldUnset,
		RunBiddingLatencyMillis:           80,
		TrustedBiddingSignalsLatencyMilli: stats.FieldUnset,
		GenerateBidsLatencyMillis:         40,
	})

	// A new result label series appeared for the run latency.
	assert.GreaterOrEqual(t, testutil.CollectAndCount(biddingRunLatency), before)
}

func TestPrometheusSinkSkipsUnsetLatencies(t *testing.T) {
	sink := NewPrometheusSink()

	// Every latency unset; no observation may be recorded, and none of the
	// observers may panic on the sentinel.
	sink.LogScoringProcessStats(stats.ScoringProcessStats{
		RunAdScoringLatencyMillis:          stats.FieldUnset,
		GetAdSelectionLogicLatencyMillis:   stats.FieldUnset,
		TrustedScoringSignalsLatencyMillis: stats.FieldUnset,
		ScoreAdsLatencyMillis:              stats.FieldUnset,
	})
}

func TestPrometheusSinkAdFilteringCounters(t *testing.T) {
	sink := NewPrometheusSink()

	caCounter := adFilteringFilteredOut.WithLabelValues("custom_audiences")
	before := testutil.ToFloat64(caCounter)

	sink.LogAdFilteringProcessStats(stats.AdFilteringProcessStats{
		ProcessType:                  stats.AdFilteringProcessCustomAudiences,
		FilterProcessLatencyMillis:   15,
		StatusCode:                   stats.StatusSuccess,
		NumOfAdsFilteredOutOfBidding: 7,
	})

	assert.Equal(t, before+7, testutil.ToFloat64(caCounter))
}

func TestPrometheusSinkSignatureFailures(t *testing.T) {
	sink := NewPrometheusSink()

	formatCounter := signatureVerificationFailures.WithLabelValues("wrong_signature_format")
	before := testutil.ToFloat64(formatCounter)

	// Verified records contribute nothing to the failure counters.
	sink.LogSignatureVerificationStats(stats.SignatureVerificationStats{
		SignatureVerificationLatencyMillis: 30,
		SignatureVerificationStatus:        stats.SignatureVerificationStatusVerified,
		FailureDetailWrongSignatureFormat:  5,
	})
	assert.Equal(t, before, testutil.ToFloat64(formatCounter))

	sink.LogSignatureVerificationStats(stats.SignatureVerificationStats{
		SignatureVerificationLatencyMillis: 30,
		SignatureVerificationStatus:        stats.SignatureVerificationStatusVerificationFailed,
		FailureDetailWrongSignatureFormat:  2,
	})
	assert.Equal(t, before+2, testutil.ToFloat64(formatCounter))
}

func TestPrometheusSinkEndToEndWithLogger(t *testing.T) {
	sink := NewPrometheusSink()
	logger := stats.NewBiddingExecutionLogger(stats.SystemClock{}, sink)

	require.NoError(t, logger.StartRunAdBiddingPerCA(2, 8))
	require.NoError(t, logger.StartGetBuyerDecisionLogic())
	require.NoError(t, logger.EndGetBuyerDecisionLogic(1024))
	require.NoError(t, logger.Close(stats.StatusTimeout))
}
