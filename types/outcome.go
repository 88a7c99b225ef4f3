package types

import "errors"

// Error type names used by the runner for failures that are not returned by
// the entry point itself.
const (
	ErrorTypeDecode      = "DecodeError"
	ErrorTypeUnknownFunc = "UnknownEntryPoint"
	ErrorTypeArgument    = "ArgumentError"
	ErrorTypePanic       = "Panic"
	ErrorTypeEncode      = "EncodeError"
	ErrorTypeLargeObject = "LargeObjectError"
	ErrorTypeProtocol    = "ProtocolError"
)

// OutcomeEnvelope is the encoded reply written by the runner program.
// Exactly one of Result and Error is present.
type OutcomeEnvelope struct {
	// Kind is always KindOutcome.
	Kind PayloadKind `msgpack:"kind"`
	// CallID echoes the request.
	CallID string `msgpack:"call_id"`
	// Result is the encoded return value. A nil return value is still
	// present as an encoded msgpack nil.
	Result []byte `msgpack:"result,omitempty"`
	// Error is the error type name. Nil on success.
	Error *string `msgpack:"error,omitempty"`
	// ErrorMsg is the error text.
	ErrorMsg string `msgpack:"error_msg,omitempty"`
	// Traceback is the formatted failure trace.
	Traceback string `msgpack:"traceback,omitempty"`
}

// SuccessOutcome builds an outcome carrying a result.
func SuccessOutcome(callID string, result []byte) *OutcomeEnvelope {
	return &OutcomeEnvelope{
		Kind:   KindOutcome,
		CallID: callID,
		Result: result,
	}
}

// FailureOutcome builds an outcome carrying an error.
func FailureOutcome(callID, errType, msg, traceback string) *OutcomeEnvelope {
	if errType == "" {
		errType = "error"
	}
	return &OutcomeEnvelope{
		Kind:      KindOutcome,
		CallID:    callID,
		Error:     &errType,
		ErrorMsg:  msg,
		Traceback: traceback,
	}
}

// Failed reports whether the outcome carries an error.
func (o *OutcomeEnvelope) Failed() bool {
	return o.Error != nil
}

// Validate enforces the exactly-one-of rule for result and error.
func (o *OutcomeEnvelope) Validate() error {
	hasResult := len(o.Result) > 0
	switch {
	case o.Error != nil && hasResult:
		return errors.New("outcome carries both a result and an error")
	case o.Error == nil && !hasResult:
		return errors.New("outcome carries neither a result nor an error")
	}
	return nil
}
