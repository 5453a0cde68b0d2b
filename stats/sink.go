package stats

// BiddingProcessStats is the immutable record emitted once per
// per-custom-audience bidding run.
type BiddingProcessStats struct {
	NumOfCAsEnteringBidding           int64
	NumOfCAsPostFiltering             int64
	NumOfAdsEnteringBidding           int64
	RunAdBiddingPerCALatencyMillis    int64
	RunAdBiddingPerCAResultCode       int
	GetBuyerDecisionLogicLatencyMilli int64
	BuyerDecisionLogicScriptSizeBytes int64
	RunBiddingLatencyMillis           int64
	TrustedBiddingSignalsLatencyMilli int64
	NumOfKeysOfTrustedBiddingSignals  int64
	TrustedBiddingSignalsDataSizeByte int64
	GenerateBidsLatencyMillis         int64
	NumOfAdsForBidding                int64
}

// ScoringProcessStats is the immutable record emitted once per scoring run.
type ScoringProcessStats struct {
	RunAdScoringLatencyMillis          int64
	RunAdScoringResultCode             int
	GetAdSelectionLogicLatencyMillis   int64
	AdSelectionLogicScriptSizeBytes    int64
	TrustedScoringSignalsLatencyMillis int64
	TrustedScoringSignalsDataSizeBytes int64
	ScoreAdsLatencyMillis              int64
	NumOfCAsEnteringScoring            int64
	NumOfRemarketingAdsEnteringScoring int64
	NumOfContextualAdsEnteringScoring  int64
}

// Ad filtering process types. Exactly one is active per logger instance;
// counters belonging to the other type are forced to unset on emit.
const (
	AdFilteringProcessCustomAudiences = 1
	AdFilteringProcessContextualAds   = 2
)

// AdFilteringProcessStats is the immutable record emitted once per ad
// filtering run.
type AdFilteringProcessStats struct {
	ProcessType                      int
	FilterProcessLatencyMillis       int64
	AppInstallFilteringLatencyMillis int64
	FrequencyCapFilteringLatencyMs   int64
	StatusCode                       int

	// Custom-audience scoped counters.
	TotalNumOfCAsBeforeFiltering int64
	NumOfCAsFilteredOutOfBidding int64
	NumOfAdsFilteredOutOfBidding int64

	// Contextual-ad scoped counters.
	TotalNumOfContextualAdsBeforeFiltering                  int64
	NumOfContextualAdsFiltered                              int64
	NumOfContextualAdsFilteredOutOfBiddingInvalidSignatures int64
	NumOfContextualAdsFilteredOutOfBiddingNoAds             int64

	// Shared counters.
	NumOfAdCounterKeysInFcapFilters int64
	NumOfPackagesInAppInstallFilter int64
	NumOfDBOperations               int64
}

// SignatureVerificationStats is the immutable record emitted once per
// contextual-ad signature verification.
type SignatureVerificationStats struct {
	SignatureVerificationLatencyMillis int64
	KeyFetchLatencyMillis              int64
	SerializationLatencyMillis         int64
	NumOfKeysFetched                   int64
	SignatureVerificationStatus        int

	// Failure detail counters, only populated on verification failure.
	FailedSignatureBuyerEnrollmentID      string
	FailedSignatureSellerEnrollmentID     string
	FailedSignatureCallerPackageName      string
	FailureDetailUnknownError             int
	FailureDetailNoEnrollmentDataForBuyer int
	FailureDetailWrongSignatureFormat     int
}

// SignalEncodingStats is the immutable record emitted once per buyer signal
// encoding run.
type SignalEncodingStats struct {
	SignalEncodingLatencyMillis int64
	JsFetchLatencyMillis        int64
	JsExecutionLatencyMillis    int64
	EncodedSignalsSizeBytes     int64
	StatusCode                  int
}

// Signature verification result codes.
const (
	SignatureVerificationStatusUnset              = 0
	SignatureVerificationStatusVerified           = 1
	SignatureVerificationStatusVerificationFailed = 2
)

// Sink receives exactly one record per logger instance. Implementations must
// not block; loggers fire and forget and never surface sink errors.
type Sink interface {
	LogBiddingProcessStats(stats BiddingProcessStats)
	LogScoringProcessStats(stats ScoringProcessStats)
	LogAdFilteringProcessStats(stats AdFilteringProcessStats)
	LogSignatureVerificationStats(stats SignatureVerificationStats)
	LogSignalEncodingStats(stats SignalEncodingStats)
}

// NoopSink discards every record
type NoopSink struct{}

func (NoopSink) LogBiddingProcessStats(BiddingProcessStats)               {}
func (NoopSink) LogScoringProcessStats(ScoringProcessStats)               {}
func (NoopSink) LogAdFilteringProcessStats(AdFilteringProcessStats)       {}
func (NoopSink) LogSignatureVerificationStats(SignatureVerificationStats) {}
func (NoopSink) LogSignalEncodingStats(SignalEncodingStats)               {}
