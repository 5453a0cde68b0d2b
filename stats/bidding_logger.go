package stats

import "time"

// Bidding lifecycle stages, in execution order.
const (
	biddingStageInit stage = iota
	biddingStageRunAdBiddingPerCAStarted
	biddingStageGetBuyerDecisionLogicStarted
	biddingStageGetBuyerDecisionLogicEnded
	biddingStageRunBiddingStarted
	biddingStageGetTrustedBiddingSignalsStarted
	biddingStageGetTrustedBiddingSignalsEnded
	biddingStageGenerateBidsStarted
	biddingStageGenerateBidsEnded
	biddingStageRunBiddingEnded
	biddingStageClosed
)

var (
	biddingTransitionStart = transition{
		from:        biddingStageInit,
		to:          biddingStageRunAdBiddingPerCAStarted,
		repeatedMsg: "the logger has already set the start of the run ad bidding per custom audience process",
		missingMsg:  "the logger should set the start of the run ad bidding per custom audience process",
	}
	biddingTransitionStartGetBuyerDecisionLogic = transition{
		from:        biddingStageRunAdBiddingPerCAStarted,
		to:          biddingStageGetBuyerDecisionLogicStarted,
		repeatedMsg: "the logger has already set the start of the get buyer decision logic process",
		missingMsg:  "the logger should set the start of the run ad bidding per custom audience process",
	}
	biddingTransitionEndGetBuyerDecisionLogic = transition{
		from:        biddingStageGetBuyerDecisionLogicStarted,
		to:          biddingStageGetBuyerDecisionLogicEnded,
		repeatedMsg: "the logger has already set the end of the get buyer decision logic process",
		missingMsg:  "the logger should set the start of the get buyer decision logic process",
	}
	biddingTransitionStartRunBidding = transition{
		from:        biddingStageGetBuyerDecisionLogicEnded,
		to:          biddingStageRunBiddingStarted,
		repeatedMsg: "the logger has already set the start of the run bidding process",
		missingMsg:  "the logger should set the end of the get buyer decision logic process",
	}
	biddingTransitionStartGetTrustedBiddingSignals = transition{
		from:        biddingStageRunBiddingStarted,
		to:          biddingStageGetTrustedBiddingSignalsStarted,
		repeatedMsg: "the logger has already set the start of the get trusted bidding signals process",
		missingMsg:  "the logger should set the start of the run bidding process",
	}
	biddingTransitionEndGetTrustedBiddingSignals = transition{
		from:        biddingStageGetTrustedBiddingSignalsStarted,
		to:          biddingStageGetTrustedBiddingSignalsEnded,
		repeatedMsg: "the logger has already set the end of the get trusted bidding signals process",
		missingMsg:  "the logger should set the start of the get trusted bidding signals process",
	}
	biddingTransitionStartGenerateBids = transition{
		from:        biddingStageGetTrustedBiddingSignalsEnded,
		to:          biddingStageGenerateBidsStarted,
		repeatedMsg: "the logger has already set the start of the generate bids process",
		missingMsg:  "the logger should set the end of the get trusted bidding signals process",
	}
	biddingTransitionEndGenerateBids = transition{
		from:        biddingStageGenerateBidsStarted,
		to:          biddingStageGenerateBidsEnded,
		repeatedMsg: "the logger has already set the end of the generate bids process",
		missingMsg:  "the logger should set the start of the generate bids process",
	}
	biddingTransitionEndRunBidding = transition{
		from:        biddingStageGenerateBidsEnded,
		to:          biddingStageRunBiddingEnded,
		repeatedMsg: "the logger has already set the end of the run bidding process",
		missingMsg:  "the logger should set the end of the generate bids process",
	}
	biddingTransitionClose = transition{
		from:        biddingStageRunAdBiddingPerCAStarted,
		to:          biddingStageClosed,
		repeatedMsg: "the logger has already closed the run ad bidding per custom audience process",
		missingMsg:  "the logger should set the start of the run ad bidding per custom audience process",
	}
)

// BiddingExecutionLogger records the per-custom-audience bidding run stage by
// stage and emits a single BiddingProcessStats record on Close. A run that
// fails partway still closes; stages it never reached emit the unset
// sentinel.
type BiddingExecutionLogger struct {
	clock   Clock
	sink    Sink
	machine stateMachine

	numOfCAsEnteringBidding int64
	numOfAdsEnteringBidding int64

	runAdBiddingPerCAStart        time.Time
	getBuyerDecisionLogicStart    time.Time
	getBuyerDecisionLogicEnd      time.Time
	buyerDecisionLogicScriptBytes int64
	runBiddingStart               time.Time
	runBiddingEnd                 time.Time
	trustedBiddingSignalsStart    time.Time
	trustedBiddingSignalsEnd      time.Time
	numOfTrustedBiddingSignalKeys int64
	trustedBiddingSignalsBytes    int64
	generateBidsStart             time.Time
	generateBidsEnd               time.Time
	numOfAdsForBidding            int64
}

// NewBiddingExecutionLogger creates a logger bound to a clock and a sink
func NewBiddingExecutionLogger(clock Clock, sink Sink) *BiddingExecutionLogger {
	return &BiddingExecutionLogger{
		clock:                         clock,
		sink:                          sink,
		buyerDecisionLogicScriptBytes: FieldUnset,
		numOfTrustedBiddingSignalKeys: FieldUnset,
		trustedBiddingSignalsBytes:    FieldUnset,
		numOfAdsForBidding:            FieldUnset,
	}
}

func (l *BiddingExecutionLogger) StartRunAdBiddingPerCA(numOfCAs, numOfAds int64) error {
	if err := l.machine.advance(biddingTransitionStart); err != nil {
		return err
	}
	l.numOfCAsEnteringBidding = numOfCAs
	l.numOfAdsEnteringBidding = numOfAds
	l.runAdBiddingPerCAStart = l.clock.Now()
	return nil
}

func (l *BiddingExecutionLogger) StartGetBuyerDecisionLogic() error {
	if err := l.machine.advance(biddingTransitionStartGetBuyerDecisionLogic); err != nil {
		return err
	}
	l.getBuyerDecisionLogicStart = l.clock.Now()
	return nil
}

func (l *BiddingExecutionLogger) EndGetBuyerDecisionLogic(scriptSizeBytes int64) error {
	if err := l.machine.advance(biddingTransitionEndGetBuyerDecisionLogic); err != nil {
		return err
	}
	l.getBuyerDecisionLogicEnd = l.clock.Now()
	l.buyerDecisionLogicScriptBytes = scriptSizeBytes
	return nil
}

func (l *BiddingExecutionLogger) StartRunBidding() error {
	if err := l.machine.advance(biddingTransitionStartRunBidding); err != nil {
		return err
	}
	l.runBiddingStart = l.clock.Now()
	return nil
}

func (l *BiddingExecutionLogger) StartGetTrustedBiddingSignals(numOfKeys int64) error {
	if err := l.machine.advance(biddingTransitionStartGetTrustedBiddingSignals); err != nil {
		return err
	}
	l.trustedBiddingSignalsStart = l.clock.Now()
	l.numOfTrustedBiddingSignalKeys = numOfKeys
	return nil
}

func (l *BiddingExecutionLogger) EndGetTrustedBiddingSignals(dataSizeBytes int64) error {
	if err := l.machine.advance(biddingTransitionEndGetTrustedBiddingSignals); err != nil {
		return err
	}
	l.trustedBiddingSignalsEnd = l.clock.Now()
	l.trustedBiddingSignalsBytes = dataSizeBytes
	return nil
}

func (l *BiddingExecutionLogger) StartGenerateBids() error {
	if err := l.machine.advance(biddingTransitionStartGenerateBids); err != nil {
		return err
	}
	l.generateBidsStart = l.clock.Now()
	return nil
}

func (l *BiddingExecutionLogger) EndGenerateBids(numOfAdsForBidding int64) error {
	if err := l.machine.advance(biddingTransitionEndGenerateBids); err != nil {
		return err
	}
	l.generateBidsEnd = l.clock.Now()
	l.numOfAdsForBidding = numOfAdsForBidding
	return nil
}

func (l *BiddingExecutionLogger) EndRunBidding() error {
	if err := l.machine.advance(biddingTransitionEndRunBidding); err != nil {
		return err
	}
	l.runBiddingEnd = l.clock.Now()
	return nil
}

// Close seals the logger and emits the stats record. Legal from any stage
// after the run started, so failed runs still report what they reached.
func (l *BiddingExecutionLogger) Close(resultCode int) error {
	if err := l.machine.advance(biddingTransitionClose); err != nil {
		return err
	}
	end := l.clock.Now()

	l.sink.LogBiddingProcessStats(BiddingProcessStats{
		NumOfCAsEnteringBidding:           l.numOfCAsEnteringBidding,
		NumOfAdsEnteringBidding:           l.numOfAdsEnteringBidding,
		RunAdBiddingPerCALatencyMillis:    latencyMillis(l.runAdBiddingPerCAStart, end),
		RunAdBiddingPerCAResultCode:       resultCode,
		GetBuyerDecisionLogicLatencyMilli: latencyMillis(l.getBuyerDecisionLogicStart, l.getBuyerDecisionLogicEnd),
		BuyerDecisionLogicScriptSizeBytes: l.buyerDecisionLogicScriptBytes,
		RunBiddingLatencyMillis:           latencyMillis(l.runBiddingStart, l.runBiddingEnd),
		TrustedBiddingSignalsLatencyMilli: latencyMillis(l.trustedBiddingSignalsStart, l.trustedBiddingSignalsEnd),
		NumOfKeysOfTrustedBiddingSignals:  l.numOfTrustedBiddingSignalKeys,
		TrustedBiddingSignalsDataSizeByte: l.trustedBiddingSignalsBytes,
		GenerateBidsLatencyMillis:         latencyMillis(l.generateBidsStart, l.generateBidsEnd),
		NumOfAdsForBidding:                l.numOfAdsForBidding,
	})
	return nil
}

// latencyMillis computes the elapsed milliseconds between two recorded
// timestamps, or the unset sentinel when either end is missing.
func latencyMillis(start, end time.Time) int64 {
	if start.IsZero() || end.IsZero() {
		return FieldUnset
	}
	return end.Sub(start).Milliseconds()
}
