package stats

// LoggerFactory bundles the clock and sink shared by every execution logger
// in the process, so callers only name the logger they need.
type LoggerFactory struct {
	clock Clock
	sink  Sink
}

// NewLoggerFactory creates a factory producing loggers bound to the given sink
func NewLoggerFactory(clock Clock, sink Sink) *LoggerFactory {
	return &LoggerFactory{clock: clock, sink: sink}
}

func (f *LoggerFactory) BiddingLogger() *BiddingExecutionLogger {
	return NewBiddingExecutionLogger(f.clock, f.sink)
}

func (f *LoggerFactory) ScoringLogger() *ScoringExecutionLogger {
	return NewScoringExecutionLogger(f.clock, f.sink)
}

func (f *LoggerFactory) AdFilteringLogger(processType int) *AdFilteringLogger {
	return NewAdFilteringLogger(f.clock, f.sink, processType)
}

func (f *LoggerFactory) SignatureVerificationLogger() *SignatureVerificationLogger {
	return NewSignatureVerificationLogger(f.clock, f.sink)
}

func (f *LoggerFactory) SignalEncodingLogger() *SignalEncodingLogger {
	return NewSignalEncodingLogger(f.clock, f.sink)
}
