package domain

// Signal is the one qualifying TA detection attached to a window.
// At most one Signal exists per window (see MG in spec §3); it is
// immutable once persisted.
type Signal struct {
	ID           int64
	WindowID     int64
	Direction    Direction
	SignalTS     int64
	ConfirmTS    int64 // SignalTS + CONFIRM_DELAY_SECONDS
	Quality      float64
	Breakdown    []byte // opaque — orchestrator never inspects contents
	AnchorBarTS  int64
}
