package models

// OperationalStatus is the adapter lifecycle state.
type OperationalStatus string

const (
	StatusActive   OperationalStatus = "ACTIVE"
	StatusInactive OperationalStatus = "INACTIVE"
)

func (s OperationalStatus) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// CanTransitionTo reports whether moving from s to target is a real change.
// The only edges are ACTIVE -> INACTIVE and INACTIVE -> ACTIVE.
func (s OperationalStatus) CanTransitionTo(target OperationalStatus) bool {
	switch s {
	case StatusActive:
		return target == StatusInactive
	case StatusInactive:
		return target == StatusActive
	default:
		return false
	}
}

func (s OperationalStatus) String() string {
	return string(s)
}

// Direction of a logged message relative to the clearing network.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

func (d Direction) IsValid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}
