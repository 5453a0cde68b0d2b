package stats

import "time"

// Signal encoding lifecycle stages, in execution order.
const (
	encodingStageInit stage = iota
	encodingStageEncodingStarted
	encodingStageJsFetchStarted
	encodingStageJsFetchEnded
	encodingStageJsExecutionStarted
	encodingStageJsExecutionEnded
	encodingStageClosed
)

var (
	encodingTransitionStart = transition{
		from:        encodingStageInit,
		to:          encodingStageEncodingStarted,
		repeatedMsg: "the logger has already set the start of the signal encoding process",
		missingMsg:  "the logger should set the start of the signal encoding process",
	}
	encodingTransitionStartJsFetch = transition{
		from:        encodingStageEncodingStarted,
		to:          encodingStageJsFetchStarted,
		repeatedMsg: "the logger has already set the start of the encoding js fetch process",
		missingMsg:  "the logger should set the start of the signal encoding process",
	}
	encodingTransitionEndJsFetch = transition{
		from:        encodingStageJsFetchStarted,
		to:          encodingStageJsFetchEnded,
		repeatedMsg: "the logger has already set the end of the encoding js fetch process",
		missingMsg:  "the logger should set the start of the encoding js fetch process",
	}
	encodingTransitionStartJsExecution = transition{
		from:        encodingStageJsFetchEnded,
		to:          encodingStageJsExecutionStarted,
		repeatedMsg: "the logger has already set the start of the encoding js execution process",
		missingMsg:  "the logger should set the end of the encoding js fetch process",
	}
	encodingTransitionEndJsExecution = transition{
		from:        encodingStageJsExecutionStarted,
		to:          encodingStageJsExecutionEnded,
		repeatedMsg: "the logger has already set the end of the encoding js execution process",
		missingMsg:  "the logger should set the start of the encoding js execution process",
	}
	encodingTransitionClose = transition{
		from:        encodingStageEncodingStarted,
		to:          encodingStageClosed,
		repeatedMsg: "the logger has already closed the signal encoding process",
		missingMsg:  "the logger should set the start of the signal encoding process",
	}
)

// SignalEncodingLogger records one buyer signal encoding run: fetching the
// encoding script and executing it over the raw signals.
type SignalEncodingLogger struct {
	clock   Clock
	sink    Sink
	machine stateMachine

	encodingStart     time.Time
	jsFetchStart      time.Time
	jsFetchEnd        time.Time
	jsExecutionStart  time.Time
	jsExecutionEnd    time.Time
	encodedSignalsLen int64
}

// NewSignalEncodingLogger creates a logger bound to a clock and a sink
func NewSignalEncodingLogger(clock Clock, sink Sink) *SignalEncodingLogger {
	return &SignalEncodingLogger{
		clock:             clock,
		sink:              sink,
		encodedSignalsLen: FieldUnset,
	}
}

func (l *SignalEncodingLogger) StartSignalEncoding() error {
	if err := l.machine.advance(encodingTransitionStart); err != nil {
		return err
	}
	l.encodingStart = l.clock.Now()
	return nil
}

func (l *SignalEncodingLogger) StartJsFetch() error {
	if err := l.machine.advance(encodingTransitionStartJsFetch); err != nil {
		return err
	}
	l.jsFetchStart = l.clock.Now()
	return nil
}

func (l *SignalEncodingLogger) EndJsFetch() error {
	if err := l.machine.advance(encodingTransitionEndJsFetch); err != nil {
		return err
	}
	l.jsFetchEnd = l.clock.Now()
	return nil
}

func (l *SignalEncodingLogger) StartJsExecution() error {
	if err := l.machine.advance(encodingTransitionStartJsExecution); err != nil {
		return err
	}
	l.jsExecutionStart = l.clock.Now()
	return nil
}

func (l *SignalEncodingLogger) EndJsExecution(encodedSignalsSizeBytes int64) error {
	if err := l.machine.advance(encodingTransitionEndJsExecution); err != nil {
		return err
	}
	l.jsExecutionEnd = l.clock.Now()
	l.encodedSignalsLen = encodedSignalsSizeBytes
	return nil
}

// Close seals the logger and emits the stats record.
func (l *SignalEncodingLogger) Close(statusCode int) error {
	if err := l.machine.advance(encodingTransitionClose); err != nil {
		return err
	}
	end := l.clock.Now()

	l.sink.LogSignalEncodingStats(SignalEncodingStats{
		SignalEncodingLatencyMillis: latencyMillis(l.encodingStart, end),
		JsFetchLatencyMillis:        latencyMillis(l.jsFetchStart, l.jsFetchEnd),
		JsExecutionLatencyMillis:    latencyMillis(l.jsExecutionStart, l.jsExecutionEnd),
		EncodedSignalsSizeBytes:     l.encodedSignalsLen,
		StatusCode:                  statusCode,
	})
	return nil
}
