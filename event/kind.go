package event

// Kind is a stable, version-independent identifier of the logical packet an Event was decoded from.
type Kind uint8

const (
	KindPassThrough Kind = iota
	KindMovement
	KindPostureChange
	KindTeleport
	KindBatch
)

// String ...
func (k Kind) String() string {
	switch k {
	case KindPassThrough:
		return "pass_through"
	case KindMovement:
		return "movement"
	case KindPostureChange:
		return "posture_change"
	case KindTeleport:
		return "teleport"
	case KindBatch:
		return "batch"
	}
	return "unknown"
}
