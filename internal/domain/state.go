package domain

import "encoding/json"

// State tags how a mirror relates to the server's authoritative list.
type State int

const (
	// StateEmpty: nothing materialised yet, or the mirror was cleared.
	StateEmpty State = iota
	// StatePopulated: the mirror reflects the last successful refresh or a
	// guest-mode mutation.
	StatePopulated
	// StateRefreshing: an authoritative refetch is in flight.
	StateRefreshing
	// StateStale: the mirror was restored from disk or a mutation is pending
	// reconciliation.
	StateStale
)

var stateNames = [...]string{"empty", "populated", "refreshing", "stale"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalJSON renders the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
