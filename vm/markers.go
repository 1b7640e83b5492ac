package vm

// ---------------------------------------------------------------------------
// Stop-propagation markers
// ---------------------------------------------------------------------------
//
// Markers are identity-compared sentinels a callback passed to list map or
// each can return to drop the current item or end the iteration. They are
// registered as the globals "skip" and "stop".

// Marker is a named sentinel value.
type Marker struct {
	name string
}

// Name returns the marker's global name.
func (m *Marker) Name() string {
	return m.name
}

var (
	// Skip asks the caller to drop the current result and continue.
	Skip = &Marker{name: "skip"}
	// Stop asks the caller to end the iteration.
	Stop = &Marker{name: "stop"}
)
