package stats

import "time"

// Ad filtering lifecycle stages, in execution order.
const (
	filteringStageInit stage = iota
	filteringStageAdFilteringStarted
	filteringStageAppInstallStarted
	filteringStageAppInstallEnded
	filteringStageFrequencyCapStarted
	filteringStageFrequencyCapEnded
	filteringStageClosed
)

var (
	filteringTransitionStart = transition{
		from:        filteringStageInit,
		to:          filteringStageAdFilteringStarted,
		repeatedMsg: "the logger has already set the start of the ad filtering process",
		missingMsg:  "the logger should set the start of the ad filtering process",
	}
	filteringTransitionStartAppInstall = transition{
		from:        filteringStageAdFilteringStarted,
		to:          filteringStageAppInstallStarted,
		repeatedMsg: "the logger has already set the start of the app install filtering process",
		missingMsg:  "the logger should set the start of the ad filtering process",
	}
	filteringTransitionEndAppInstall = transition{
		from:        filteringStageAppInstallStarted,
		to:          filteringStageAppInstallEnded,
		repeatedMsg: "the logger has already set the end of the app install filtering process",
		missingMsg:  "the logger should set the start of the app install filtering process",
	}
	filteringTransitionStartFrequencyCap = transition{
		from:        filteringStageAppInstallEnded,
		to:          filteringStageFrequencyCapStarted,
		repeatedMsg: "the logger has already set the start of the frequency cap filtering process",
		missingMsg:  "the logger should set the end of the app install filtering process",
	}
	filteringTransitionEndFrequencyCap = transition{
		from:        filteringStageFrequencyCapStarted,
		to:          filteringStageFrequencyCapEnded,
		repeatedMsg: "the logger has already set the end of the frequency cap filtering process",
		missingMsg:  "the logger should set the start of the frequency cap filtering process",
	}
	filteringTransitionClose = transition{
		from:        filteringStageAdFilteringStarted,
		to:          filteringStageClosed,
		repeatedMsg: "the logger has already closed the ad filtering process",
		missingMsg:  "the logger should set the start of the ad filtering process",
	}
)

// AdFilteringLogger records one ad filtering run. The process type fixed at
// construction decides which counter family survives the emit: counters
// belonging to the other family are forced to zero regardless of what the
// caller recorded.
type AdFilteringLogger struct {
	clock       Clock
	sink        Sink
	machine     stateMachine
	processType int

	adFilteringStart  time.Time
	appInstallStart   time.Time
	appInstallEnd     time.Time
	frequencyCapStart time.Time
	frequencyCapEnd   time.Time

	totalNumOfCAsBeforeFiltering int64
	numOfCAsFilteredOutOfBidding int64
	numOfAdsFilteredOutOfBidding int64

	totalNumOfContextualAdsBeforeFiltering int64
	numOfContextualAdsFiltered             int64
	numOfContextualAdsInvalidSignatures    int64
	numOfContextualAdsNoAds                int64

	numOfAdCounterKeysInFcapFilters int64
	numOfPackagesInAppInstallFilter int64
	numOfDBOperations               int64
}

// NewAdFilteringLogger creates a logger for one filtering run of the given
// process type.
func NewAdFilteringLogger(clock Clock, sink Sink, processType int) *AdFilteringLogger {
	return &AdFilteringLogger{
		clock:       clock,
		sink:        sink,
		processType: processType,
	}
}

func (l *AdFilteringLogger) StartAdFiltering() error {
	if err := l.machine.advance(filteringTransitionStart); err != nil {
		return err
	}
	l.adFilteringStart = l.clock.Now()
	return nil
}

func (l *AdFilteringLogger) StartAppInstallFiltering() error {
	if err := l.machine.advance(filteringTransitionStartAppInstall); err != nil {
		return err
	}
	l.appInstallStart = l.clock.Now()
	return nil
}

func (l *AdFilteringLogger) EndAppInstallFiltering(numOfPackages int64) error {
	if err := l.machine.advance(filteringTransitionEndAppInstall); err != nil {
		return err
	}
	l.appInstallEnd = l.clock.Now()
	l.numOfPackagesInAppInstallFilter = numOfPackages
	return nil
}

func (l *AdFilteringLogger) StartFrequencyCapFiltering() error {
	if err := l.machine.advance(filteringTransitionStartFrequencyCap); err != nil {
		return err
	}
	l.frequencyCapStart = l.clock.Now()
	return nil
}

func (l *AdFilteringLogger) EndFrequencyCapFiltering(numOfAdCounterKeys int64) error {
	if err := l.machine.advance(filteringTransitionEndFrequencyCap); err != nil {
		return err
	}
	l.frequencyCapEnd = l.clock.Now()
	l.numOfAdCounterKeysInFcapFilters = numOfAdCounterKeys
	return nil
}

// SetCustomAudienceCounts records the custom-audience filtering counters.
// They only reach the emitted record when the process type is
// AdFilteringProcessCustomAudiences.
func (l *AdFilteringLogger) SetCustomAudienceCounts(totalCAsBefore, casFilteredOut, adsFilteredOut int64) {
	l.totalNumOfCAsBeforeFiltering = totalCAsBefore
	l.numOfCAsFilteredOutOfBidding = casFilteredOut
	l.numOfAdsFilteredOutOfBidding = adsFilteredOut
}

// SetContextualAdCounts records the contextual-ad filtering counters. They
// only reach the emitted record when the process type is
// AdFilteringProcessContextualAds.
func (l *AdFilteringLogger) SetContextualAdCounts(totalBefore, filtered, invalidSignatures, noAds int64) {
	l.totalNumOfContextualAdsBeforeFiltering = totalBefore
	l.numOfContextualAdsFiltered = filtered
	l.numOfContextualAdsInvalidSignatures = invalidSignatures
	l.numOfContextualAdsNoAds = noAds
}

// AddDBOperation increments the database operation counter
func (l *AdFilteringLogger) AddDBOperation() {
	l.numOfDBOperations++
}

// Close seals the logger, scopes the counters to the active process type and
// emits the stats record.
func (l *AdFilteringLogger) Close(statusCode int) error {
	if err := l.machine.advance(filteringTransitionClose); err != nil {
		return err
	}
	end := l.clock.Now()

	record := AdFilteringProcessStats{
		ProcessType:                      l.processType,
		FilterProcessLatencyMillis:       latencyMillis(l.adFilteringStart, end),
		AppInstallFilteringLatencyMillis: latencyMillis(l.appInstallStart, l.appInstallEnd),
		FrequencyCapFilteringLatencyMs:   latencyMillis(l.frequencyCapStart, l.frequencyCapEnd),
		StatusCode:                       statusCode,
		NumOfAdCounterKeysInFcapFilters:  l.numOfAdCounterKeysInFcapFilters,
		NumOfPackagesInAppInstallFilter:  l.numOfPackagesInAppInstallFilter,
		NumOfDBOperations:                l.numOfDBOperations,
	}

	switch l.processType {
	case AdFilteringProcessCustomAudiences:
		record.TotalNumOfCAsBeforeFiltering = l.totalNumOfCAsBeforeFiltering
		record.NumOfCAsFilteredOutOfBidding = l.numOfCAsFilteredOutOfBidding
		record.NumOfAdsFilteredOutOfBidding = l.numOfAdsFilteredOutOfBidding
	case AdFilteringProcessContextualAds:
		record.TotalNumOfContextualAdsBeforeFiltering = l.totalNumOfContextualAdsBeforeFiltering
		record.NumOfContextualAdsFiltered = l.numOfContextualAdsFiltered
		record.NumOfContextualAdsFilteredOutOfBiddingInvalidSignatures = l.numOfContextualAdsInvalidSignatures
		record.NumOfContextualAdsFilteredOutOfBiddingNoAds = l.numOfContextualAdsNoAds
	}

	l.sink.LogAdFilteringProcessStats(record)
	return nil
}
