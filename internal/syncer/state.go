package syncer

// State is the coordinator's connectivity state. Exactly one backend is live
// at a time: the local store in LocalOnly, the remote trip store in
// CloudConnected. The state only moves forward within a session: LocalOnly
// can be promoted by a manual refresh, but a connected session never demotes
// itself; the only way back is a full reset.
type State int

const (
	// Uninitialized is the pre-startup (and post-reset) state.
	Uninitialized State = iota

	// LocalOnly routes every read and write to the local persistent store.
	LocalOnly

	// CloudConnected routes writes to the remote trip store and reads from
	// the live subscription snapshots. Local persistence is suppressed.
	CloudConnected
)

func (s State) String() string {
	switch s {
	case LocalOnly:
		return "local-only"
	case CloudConnected:
		return "cloud-connected"
	default:
		return "uninitialized"
	}
}
