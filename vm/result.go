package vm

// ---------------------------------------------------------------------------
// Message: a channel payload carrying either a value or a failure
// ---------------------------------------------------------------------------

// Message is what travels through a Channel. Exactly one of Value and Err
// is meaningful: a non-nil Err marks a captured failure that the receiver
// re-raises.
type Message struct {
	Value Value
	Err   error
}

// Success wraps a value.
func Success(v Value) Message {
	return Message{Value: v}
}

// Failure wraps an error.
func Failure(err error) Message {
	return Message{Err: err}
}

// IsFailure reports whether the message carries an error.
func (m Message) IsFailure() bool {
	return m.Err != nil
}

// Unwrap returns the value, or the captured error.
func (m Message) Unwrap() (Value, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Value, nil
}
