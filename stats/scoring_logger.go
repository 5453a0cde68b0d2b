package stats

import "time"

// Scoring lifecycle stages, in execution order.
const (
	scoringStageInit stage = iota
	scoringStageRunAdScoringStarted
	scoringStageGetAdSelectionLogicStarted
	scoringStageGetAdSelectionLogicEnded
	scoringStageGetTrustedScoringSignalsStarted
	scoringStageGetTrustedScoringSignalsEnded
	scoringStageScoreAdsStarted
	scoringStageScoreAdsEnded
	scoringStageClosed
)

var (
	scoringTransitionStart = transition{
		from:        scoringStageInit,
		to:          scoringStageRunAdScoringStarted,
		repeatedMsg: "the logger has already set the start of the run ad scoring process",
		missingMsg:  "the logger should set the start of the run ad scoring process",
	}
	scoringTransitionStartGetAdSelectionLogic = transition{
		from:        scoringStageRunAdScoringStarted,
		to:          scoringStageGetAdSelectionLogicStarted,
		repeatedMsg: "the logger has already set the start of the get ad selection logic process",
		missingMsg:  "the logger should set the start of the run ad scoring process",
	}
	scoringTransitionEndGetAdSelectionLogic = transition{
		from:        scoringStageGetAdSelectionLogicStarted,
		to:          scoringStageGetAdSelectionLogicEnded,
		repeatedMsg: "the logger has already set the end of the get ad selection logic process",
		missingMsg:  "the logger should set the start of the get ad selection logic process",
	}
	scoringTransitionStartGetTrustedScoringSignals = transition{
		from:        scoringStageGetAdSelectionLogicEnded,
		to:          scoringStageGetTrustedScoringSignalsStarted,
		repeatedMsg: "the logger has already set the start of the get trusted scoring signals process",
		missingMsg:  "the logger should set the end of the get ad selection logic process",
	}
	scoringTransitionEndGetTrustedScoringSignals = transition{
		from:        scoringStageGetTrustedScoringSignalsStarted,
		to:          scoringStageGetTrustedScoringSignalsEnded,
		repeatedMsg: "the logger has already set the end of the get trusted scoring signals process",
		missingMsg:  "the logger should set the start of the get trusted scoring signals process",
	}
	scoringTransitionStartScoreAds = transition{
		from:        scoringStageGetTrustedScoringSignalsEnded,
		to:          scoringStageScoreAdsStarted,
		repeatedMsg: "the logger has already set the start of the score ads process",
		missingMsg:  "the logger should set the end of the get trusted scoring signals process",
	}
	scoringTransitionEndScoreAds = transition{
		from:        scoringStageScoreAdsStarted,
		to:          scoringStageScoreAdsEnded,
		repeatedMsg: "the logger has already set the end of the score ads process",
		missingMsg:  "the logger should set the start of the score ads process",
	}
	scoringTransitionClose = transition{
		from:        scoringStageRunAdScoringStarted,
		to:          scoringStageClosed,
		repeatedMsg: "the logger has already closed the run ad scoring process",
		missingMsg:  "the logger should set the start of the run ad scoring process",
	}
)

// ScoringExecutionLogger records the scoring run stage by stage and emits a
// single ScoringProcessStats record on Close.
type ScoringExecutionLogger struct {
	clock   Clock
	sink    Sink
	machine stateMachine

	numOfCAsEnteringScoring            int64
	numOfRemarketingAdsEnteringScoring int64
	numOfContextualAdsEnteringScoring  int64

	runAdScoringStart           time.Time
	getAdSelectionLogicStart    time.Time
	getAdSelectionLogicEnd      time.Time
	adSelectionLogicScriptBytes int64
	trustedScoringSignalsStart  time.Time
	trustedScoringSignalsEnd    time.Time
	trustedScoringSignalsBytes  int64
	scoreAdsStart               time.Time
	scoreAdsEnd                 time.Time
}

// NewScoringExecutionLogger creates a logger bound to a clock and a sink
func NewScoringExecutionLogger(clock Clock, sink Sink) *ScoringExecutionLogger {
	return &ScoringExecutionLogger{
		clock:                       clock,
		sink:                        sink,
		adSelectionLogicScriptBytes: FieldUnset,
		trustedScoringSignalsBytes:  FieldUnset,
	}
}

func (l *ScoringExecutionLogger) StartRunAdScoring(numOfCAs, numOfRemarketingAds, numOfContextualAds int64) error {
	if err := l.machine.advance(scoringTransitionStart); err != nil {
		return err
	}
	l.numOfCAsEnteringScoring = numOfCAs
	l.numOfRemarketingAdsEnteringScoring = numOfRemarketingAds
	l.numOfContextualAdsEnteringScoring = numOfContextualAds
	l.runAdScoringStart = l.clock.Now()
	return nil
}

func (l *ScoringExecutionLogger) StartGetAdSelectionLogic() error {
	if err := l.machine.advance(scoringTransitionStartGetAdSelectionLogic); err != nil {
		return err
	}
	l.getAdSelectionLogicStart = l.clock.Now()
	return nil
}

func (l *ScoringExecutionLogger) EndGetAdSelectionLogic(scriptSizeBytes int64) error {
	if err := l.machine.advance(scoringTransitionEndGetAdSelectionLogic); err != nil {
		return err
	}
	l.getAdSelectionLogicEnd = l.clock.Now()
	l.adSelectionLogicScriptBytes = scriptSizeBytes
	return nil
}

func (l *ScoringExecutionLogger) StartGetTrustedScoringSignals() error {
	if err := l.machine.advance(scoringTransitionStartGetTrustedScoringSignals); err != nil {
		return err
	}
	l.trustedScoringSignalsStart = l.clock.Now()
	return nil
}

func (l *ScoringExecutionLogger) EndGetTrustedScoringSignals(dataSizeBytes int64) error {
	if err := l.machine.advance(scoringTransitionEndGetTrustedScoringSignals); err != nil {
		return err
	}
	l.trustedScoringSignalsEnd = l.clock.Now()
	l.trustedScoringSignalsBytes = dataSizeBytes
	return nil
}

func (l *ScoringExecutionLogger) StartScoreAds() error {
	if err := l.machine.advance(scoringTransitionStartScoreAds); err != nil {
		return err
	}
	l.scoreAdsStart = l.clock.Now()
	return nil
}

func (l *ScoringExecutionLogger) EndScoreAds() error {
	if err := l.machine.advance(scoringTransitionEndScoreAds); err != nil {
		return err
	}
	l.scoreAdsEnd = l.clock.Now()
	return nil
}

// Close seals the logger and emits the stats record.
func (l *ScoringExecutionLogger) Close(resultCode int) error {
	if err := l.machine.advance(scoringTransitionClose); err != nil {
		return err
	}
	end := l.clock.Now()

	l.sink.LogScoringProcessStats(ScoringProcessStats{
		RunAdScoringLatencyMillis:          latencyMillis(l.runAdScoringStart, end),
		RunAdScoringResultCode:             resultCode,
		GetAdSelectionLogicLatencyMillis:   latencyMillis(l.getAdSelectionLogicStart, l.getAdSelectionLogicEnd),
		AdSelectionLogicScriptSizeBytes:    l.adSelectionLogicScriptBytes,
		TrustedScoringSignalsLatencyMillis: latencyMillis(l.trustedScoringSignalsStart, l.trustedScoringSignalsEnd),
		TrustedScoringSignalsDataSizeBytes: l.trustedScoringSignalsBytes,
		ScoreAdsLatencyMillis:              latencyMillis(l.scoreAdsStart, l.scoreAdsEnd),
		NumOfCAsEnteringScoring:            l.numOfCAsEnteringScoring,
		NumOfRemarketingAdsEnteringScoring: l.numOfRemarketingAdsEnteringScoring,
		NumOfContextualAdsEnteringScoring:  l.numOfContextualAdsEnteringScoring,
	})
	return nil
}
