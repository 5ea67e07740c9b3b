// Package event holds the version-independent representations of the protocol messages hac interprets.
// Every protocol version adapter decodes into, and encodes from, these types, so code reading them never
// has to know which wire format the server speaks.
package event

// Event is a decoded protocol message. Events are values and are never mutated after being constructed.
type Event interface {
	// Kind returns the logical packet kind of the event.
	Kind() Kind
}

// PassThrough is a message hac does not interpret. Payload holds the raw packet exactly as it was read
// from the wire, header included.
type PassThrough struct {
	PacketID uint32
	Payload  []byte
}

// Kind ...
func (PassThrough) Kind() Kind {
	return KindPassThrough
}

// Batch holds multiple events decoded from a single wire message. Bedrock's PlayerAuthInput, for instance,
// carries both the movement of a tick and the posture toggles made during it.
type Batch []Event

// Kind ...
func (Batch) Kind() Kind {
	return KindBatch
}
