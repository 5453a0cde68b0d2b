package stats

import "time"

// Signature verification lifecycle stages, in execution order.
const (
	signatureStageInit stage = iota
	signatureStageVerificationStarted
	signatureStageKeyFetchStarted
	signatureStageKeyFetchEnded
	signatureStageSerializationStarted
	signatureStageSerializationEnded
	signatureStageClosed
)

var (
	signatureTransitionStart = transition{
		from:        signatureStageInit,
		to:          signatureStageVerificationStarted,
		repeatedMsg: "the logger has already set the start of the signature verification process",
		missingMsg:  "the logger should set the start of the signature verification process",
	}
	signatureTransitionStartKeyFetch = transition{
		from:        signatureStageVerificationStarted,
		to:          signatureStageKeyFetchStarted,
		repeatedMsg: "the logger has already set the start of the key fetch process",
		missingMsg:  "the logger should set the start of the signature verification process",
	}
	signatureTransitionEndKeyFetch = transition{
		from:        signatureStageKeyFetchStarted,
		to:          signatureStageKeyFetchEnded,
		repeatedMsg: "the logger has already set the end of the key fetch process",
		missingMsg:  "the logger should set the start of the key fetch process",
	}
	signatureTransitionStartSerialization = transition{
		from:        signatureStageKeyFetchEnded,
		to:          signatureStageSerializationStarted,
		repeatedMsg: "the logger has already set the start of the serialization process",
		missingMsg:  "the logger should set the end of the key fetch process",
	}
	signatureTransitionEndSerialization = transition{
		from:        signatureStageSerializationStarted,
		to:          signatureStageSerializationEnded,
		repeatedMsg: "the logger has already set the end of the serialization process",
		missingMsg:  "the logger should set the start of the serialization process",
	}
	signatureTransitionClose = transition{
		from:        signatureStageVerificationStarted,
		to:          signatureStageClosed,
		repeatedMsg: "the logger has already closed the signature verification process",
		missingMsg:  "the logger should set the start of the signature verification process",
	}
)

// SignatureVerificationLogger records one contextual-ad signature
// verification, its key fetch and serialization sub-stages, and the failure
// details when verification does not pass.
type SignatureVerificationLogger struct {
	clock   Clock
	sink    Sink
	machine stateMachine

	verificationStart  time.Time
	keyFetchStart      time.Time
	keyFetchEnd        time.Time
	numOfKeysFetched   int64
	serializationStart time.Time
	serializationEnd   time.Time

	failedSignatureBuyerEnrollmentID  string
	failedSignatureSellerEnrollmentID string
	failedSignatureCallerPackageName  string
	failureDetailUnknownError         int
	failureDetailNoEnrollmentData     int
	failureDetailWrongSignatureFormat int
}

// NewSignatureVerificationLogger creates a logger bound to a clock and a sink
func NewSignatureVerificationLogger(clock Clock, sink Sink) *SignatureVerificationLogger {
	return &SignatureVerificationLogger{
		clock:            clock,
		sink:             sink,
		numOfKeysFetched: FieldUnset,
	}
}

func (l *SignatureVerificationLogger) StartSignatureVerification() error {
	if err := l.machine.advance(signatureTransitionStart); err != nil {
		return err
	}
	l.verificationStart = l.clock.Now()
	return nil
}

func (l *SignatureVerificationLogger) StartKeyFetch() error {
	if err := l.machine.advance(signatureTransitionStartKeyFetch); err != nil {
		return err
	}
	l.keyFetchStart = l.clock.Now()
	return nil
}

func (l *SignatureVerificationLogger) EndKeyFetch(numOfKeysFetched int64) error {
	if err := l.machine.advance(signatureTransitionEndKeyFetch); err != nil {
		return err
	}
	l.keyFetchEnd = l.clock.Now()
	l.numOfKeysFetched = numOfKeysFetched
	return nil
}

func (l *SignatureVerificationLogger) StartSerialization() error {
	if err := l.machine.advance(signatureTransitionStartSerialization); err != nil {
		return err
	}
	l.serializationStart = l.clock.Now()
	return nil
}

func (l *SignatureVerificationLogger) EndSerialization() error {
	if err := l.machine.advance(signatureTransitionEndSerialization); err != nil {
		return err
	}
	l.serializationEnd = l.clock.Now()
	return nil
}

// SetFailedSignatureBuyerEnrollmentID records the buyer whose signature
// failed verification.
func (l *SignatureVerificationLogger) SetFailedSignatureBuyerEnrollmentID(id string) {
	l.failedSignatureBuyerEnrollmentID = id
}

// SetFailedSignatureSellerEnrollmentID records the seller on the failed
// verification.
func (l *SignatureVerificationLogger) SetFailedSignatureSellerEnrollmentID(id string) {
	l.failedSignatureSellerEnrollmentID = id
}

// SetFailedSignatureCallerPackageName records the caller package on the
// failed verification.
func (l *SignatureVerificationLogger) SetFailedSignatureCallerPackageName(name string) {
	l.failedSignatureCallerPackageName = name
}

// AddFailureDetailUnknownError increments the unknown-error failure counter
func (l *SignatureVerificationLogger) AddFailureDetailUnknownError() {
	l.failureDetailUnknownError++
}

// AddFailureDetailNoEnrollmentDataForBuyer increments the missing-enrollment
// failure counter.
func (l *SignatureVerificationLogger) AddFailureDetailNoEnrollmentDataForBuyer() {
	l.failureDetailNoEnrollmentData++
}

// AddFailureDetailWrongSignatureFormat increments the malformed-signature
// failure counter.
func (l *SignatureVerificationLogger) AddFailureDetailWrongSignatureFormat() {
	l.failureDetailWrongSignatureFormat++
}

// Close seals the logger and emits the stats record. Failure details are
// discarded when verification succeeded.
func (l *SignatureVerificationLogger) Close(status int) error {
	if err := l.machine.advance(signatureTransitionClose); err != nil {
		return err
	}
	end := l.clock.Now()

	record := SignatureVerificationStats{
		SignatureVerificationLatencyMillis: latencyMillis(l.verificationStart, end),
		KeyFetchLatencyMillis:              latencyMillis(l.keyFetchStart, l.keyFetchEnd),
		SerializationLatencyMillis:         latencyMillis(l.serializationStart, l.serializationEnd),
		NumOfKeysFetched:                   l.numOfKeysFetched,
		SignatureVerificationStatus:        status,
	}

	if status == SignatureVerificationStatusVerificationFailed {
		record.FailedSignatureBuyerEnrollmentID = l.failedSignatureBuyerEnrollmentID
		record.FailedSignatureSellerEnrollmentID = l.failedSignatureSellerEnrollmentID
		record.FailedSignatureCallerPackageName = l.failedSignatureCallerPackageName
		record.FailureDetailUnknownError = l.failureDetailUnknownError
		record.FailureDetailNoEnrollmentDataForBuyer = l.failureDetailNoEnrollmentData
		record.FailureDetailWrongSignatureFormat = l.failureDetailWrongSignatureFormat
	}

	l.sink.LogSignatureVerificationStats(record)
	return nil
}
