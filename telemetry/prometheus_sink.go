// Package telemetry exports the stats records as Prometheus metrics.
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/amirphl/Ame-no-Murakumo/stats"
)

var (
	latencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

	biddingRunLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bidding_run_latency_millis",
			Help:    "End to end per-custom-audience bidding run latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"result"},
	)

	biddingStageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bidding_stage_latency_millis",
			Help:    "Bidding sub-stage latencies in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"stage"},
	)

	biddingAdsEntering = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bidding_ads_entering",
			Help:    "Number of ads entering a bidding run",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
	)

	scoringRunLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoring_run_latency_millis",
			Help:    "End to end scoring run latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"result"},
	)

	scoringStageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoring_stage_latency_millis",
			Help:    "Scoring sub-stage latencies in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"stage"},
	)

	adFilteringLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ad_filtering_latency_millis",
			Help:    "Ad filtering run latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"process_type", "status"},
	)

	adFilteringFilteredOut = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_filtering_filtered_out_total",
			Help: "Ads removed by filtering, partitioned by process type",
		},
		[]string{"process_type"},
	)

	signatureVerificationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signature_verification_latency_millis",
			Help:    "Contextual ad signature verification latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"status"},
	)

	signatureVerificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signature_verification_failures_total",
			Help: "Signature verification failures partitioned by detail",
		},
		[]string{"detail"},
	)

	signalEncodingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_encoding_latency_millis",
			Help:    "Buyer signal encoding run latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"stage", "status"},
	)

	signalEncodingPayloadSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signal_encoding_payload_size_bytes",
			Help:    "Size of the encoded buyer signals payload in bytes",
			Buckets: []float64{64, 256, 1024, 4096, 16384, 65536},
		},
	)
)

// PrometheusSink implements stats.Sink on promauto collectors. Records with
// unset latencies skip the corresponding observation instead of polluting the
// histogram with sentinels.
type PrometheusSink struct{}

// NewPrometheusSink creates the Prometheus-backed stats sink
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

func (s *PrometheusSink) LogBiddingProcessStats(record stats.BiddingProcessStats) {
	observeLatency(biddingRunLatency.WithLabelValues(strconv.Itoa(record.RunAdBiddingPerCAResultCode)), record.RunAdBiddingPerCALatencyMillis)
	observeLatency(biddingStageLatency.WithLabelValues("get_buyer_decision_logic"), record.GetBuyerDecisionLogicLatencyMilli)
	observeLatency(biddingStageLatency.WithLabelValues("run_bidding"), record.RunBiddingLatencyMillis)
	observeLatency(biddingStageLatency.WithLabelValues("get_trusted_bidding_signals"), record.TrustedBiddingSignalsLatencyMilli)
	observeLatency(biddingStageLatency.WithLabelValues("generate_bids"), record.GenerateBidsLatencyMillis)
	if record.NumOfAdsEnteringBidding >= 0 {
		biddingAdsEntering.Observe(float64(record.NumOfAdsEnteringBidding))
	}
}

func (s *PrometheusSink) LogScoringProcessStats(record stats.ScoringProcessStats) {
	observeLatency(scoringRunLatency.WithLabelValues(strconv.Itoa(record.RunAdScoringResultCode)), record.RunAdScoringLatencyMillis)
	observeLatency(scoringStageLatency.WithLabelValues("get_ad_selection_logic"), record.GetAdSelectionLogicLatencyMillis)
	observeLatency(scoringStageLatency.WithLabelValues("get_trusted_scoring_signals"), record.TrustedScoringSignalsLatencyMillis)
	observeLatency(scoringStageLatency.WithLabelValues("score_ads"), record.ScoreAdsLatencyMillis)
}

func (s *PrometheusSink) LogAdFilteringProcessStats(record stats.AdFilteringProcessStats) {
	processType := processTypeLabel(record.ProcessType)
	observeLatency(
		adFilteringLatency.WithLabelValues(processType, strconv.Itoa(record.StatusCode)),
		record.FilterProcessLatencyMillis,
	)

	switch record.ProcessType {
	case stats.AdFilteringProcessCustomAudiences:
		adFilteringFilteredOut.WithLabelValues(processType).Add(float64(record.NumOfAdsFilteredOutOfBidding))
	case stats.AdFilteringProcessContextualAds:
		adFilteringFilteredOut.WithLabelValues(processType).Add(float64(record.NumOfContextualAdsFiltered))
	}
}

func (s *PrometheusSink) LogSignatureVerificationStats(record stats.SignatureVerificationStats) {
	observeLatency(
		signatureVerificationLatency.WithLabelValues(strconv.Itoa(record.SignatureVerificationStatus)),
		record.SignatureVerificationLatencyMillis,
	)

	if record.SignatureVerificationStatus != stats.SignatureVerificationStatusVerificationFailed {
		return
	}
	addFailures(signatureVerificationFailures.WithLabelValues("unknown_error"), record.FailureDetailUnknownError)
	addFailures(signatureVerificationFailures.WithLabelValues("no_enrollment_data_for_buyer"), record.FailureDetailNoEnrollmentDataForBuyer)
	addFailures(signatureVerificationFailures.WithLabelValues("wrong_signature_format"), record.FailureDetailWrongSignatureFormat)
}

func (s *PrometheusSink) LogSignalEncodingStats(record stats.SignalEncodingStats) {
	status := strconv.Itoa(record.StatusCode)
	observeLatency(signalEncodingLatency.WithLabelValues("total", status), record.SignalEncodingLatencyMillis)
	observeLatency(signalEncodingLatency.WithLabelValues("js_fetch", status), record.JsFetchLatencyMillis)
	observeLatency(signalEncodingLatency.WithLabelValues("js_execution", status), record.JsExecutionLatencyMillis)
	if record.EncodedSignalsSizeBytes >= 0 {
		signalEncodingPayloadSize.Observe(float64(record.EncodedSignalsSizeBytes))
	}
}

func observeLatency(observer prometheus.Observer, latencyMillis int64) {
	if latencyMillis == stats.FieldUnset {
		return
	}
	observer.Observe(float64(latencyMillis))
}

func addFailures(counter prometheus.Counter, count int) {
	if count <= 0 {
		return
	}
	counter.Add(float64(count))
}

func processTypeLabel(processType int) string {
	switch processType {
	case stats.AdFilteringProcessCustomAudiences:
		return "custom_audiences"
	case stats.AdFilteringProcessContextualAds:
		return "contextual_ads"
	default:
		return "unknown"
	}
}
