package event

// Action is a discrete change in the stance of a player.
type Action uint8

const (
	// ActionInvalid is the action any wire value that is not recognised resolves to.
	ActionInvalid Action = iota
	ActionStartSneaking
	ActionStopSneaking
	ActionStartSprinting
	ActionStopSprinting
	ActionStartGliding
	ActionStopGliding
	ActionStartFlying
	ActionStopFlying
)

var actionNames = [...]string{
	ActionInvalid:        "INVALID",
	ActionStartSneaking:  "START_SNEAKING",
	ActionStopSneaking:   "STOP_SNEAKING",
	ActionStartSprinting: "START_SPRINTING",
	ActionStopSprinting:  "STOP_SPRINTING",
	ActionStartGliding:   "START_GLIDING",
	ActionStopGliding:    "STOP_GLIDING",
	ActionStartFlying:    "START_FLYING",
	ActionStopFlying:     "STOP_FLYING",
}

// String ...
func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return actionNames[ActionInvalid]
}

// Valid returns false for ActionInvalid and any value outside the known set.
func (a Action) Valid() bool {
	return a != ActionInvalid && int(a) < len(actionNames)
}

// ActionFromString returns the Action with the name passed, or ActionInvalid if no action has that name.
func ActionFromString(name string) Action {
	for a, n := range actionNames {
		if n == name {
			return Action(a)
		}
	}
	return ActionInvalid
}

// PostureChange is sent by the client when it starts or stops sneaking, sprinting, gliding or flying.
type PostureChange struct {
	EntityRuntimeID uint64
	Action          Action
}

// Kind ...
func (PostureChange) Kind() Kind {
	return KindPostureChange
}
