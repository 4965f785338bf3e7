// Package status defines the status vocabularies for tracked work items and
// the transition rules that guard the reconciled view against stale events.
//
// The push channel guarantees ordering only within one session; across a
// reconnect a stale in-flight event can arrive after a terminal one. Rejecting
// backward transitions here is the single defense against a finished job being
// resurrected in the view.
package status

// Download is the lifecycle status of a model file download.
type Download string

const (
	DownloadIdle        Download = "idle"
	DownloadQueued      Download = "queued"
	DownloadDownloading Download = "downloading"
	DownloadCancelling  Download = "cancelling"
	DownloadComplete    Download = "complete"
	DownloadError       Download = "error"
	DownloadCancelled   Download = "cancelled"
)

// String returns the string representation of the status.
func (d Download) String() string { return string(d) }

// Valid reports whether the value belongs to the download vocabulary.
func (d Download) Valid() bool {
	switch d {
	case DownloadIdle, DownloadQueued, DownloadDownloading, DownloadCancelling,
		DownloadComplete, DownloadError, DownloadCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is valid from d.
func (d Download) IsTerminal() bool {
	return d == DownloadComplete || d == DownloadError || d == DownloadCancelled
}

// IsActive reports whether the download still has work in flight.
func (d Download) IsActive() bool {
	return d == DownloadQueued || d == DownloadDownloading || d == DownloadCancelling
}

func (d Download) rank() int {
	switch d {
	case DownloadIdle:
		return 0
	case DownloadQueued:
		return 1
	case DownloadDownloading:
		return 2
	case DownloadCancelling:
		return 3
	default: // terminal
		return 4
	}
}

// CanTransition reports whether an item already stored with status d may be
// replaced by one carrying status to. Duplicates of the current status are
// always accepted. A terminal status never yields to a different one; a fresh
// key (no stored record) is handled by the caller and accepts anything.
func (d Download) CanTransition(to Download) bool {
	if !to.Valid() {
		return false
	}
	if to == d {
		return true
	}
	if d.IsTerminal() {
		return false
	}
	return to.rank() >= d.rank()
}

// Inference is the lifecycle status of a model inference session.
type Inference string

const (
	InferenceIdle       Inference = "idle"
	InferenceQueued     Inference = "queued"
	InferenceInferring  Inference = "inferring"
	InferenceCancelling Inference = "cancelling"
	InferenceComplete   Inference = "complete"
	InferenceError      Inference = "error"
	InferenceCancelled  Inference = "cancelled"
)

// String returns the string representation of the status.
func (i Inference) String() string { return string(i) }

// Valid reports whether the value belongs to the inference vocabulary.
func (i Inference) Valid() bool {
	switch i {
	case InferenceIdle, InferenceQueued, InferenceInferring, InferenceCancelling,
		InferenceComplete, InferenceError, InferenceCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is valid from i.
func (i Inference) IsTerminal() bool {
	return i == InferenceComplete || i == InferenceError || i == InferenceCancelled
}

// IsActive reports whether the session still has work in flight.
func (i Inference) IsActive() bool {
	return i == InferenceQueued || i == InferenceInferring || i == InferenceCancelling
}

func (i Inference) rank() int {
	switch i {
	case InferenceIdle:
		return 0
	case InferenceQueued:
		return 1
	case InferenceInferring:
		return 2
	case InferenceCancelling:
		return 3
	default: // terminal
		return 4
	}
}

// CanTransition reports whether a stored session with status i may be replaced
// by one carrying status to. Same rules as Download.CanTransition.
func (i Inference) CanTransition(to Inference) bool {
	if !to.Valid() {
		return false
	}
	if to == i {
		return true
	}
	if i.IsTerminal() {
		return false
	}
	return to.rank() >= i.rank()
}

// Server is the lifecycle status of a backend service. Server statuses are
// replaced wholesale and carry no transition graph.
type Server string

const (
	ServerUnknown   Server = "unknown"
	ServerStarting  Server = "starting"
	ServerPreparing Server = "preparing"
	ServerRunning   Server = "running"
	ServerReady     Server = "ready"
	ServerStopping  Server = "stopping"
	ServerStopped   Server = "stopped"
	ServerError     Server = "error"
)

// String returns the string representation of the status.
func (s Server) String() string { return string(s) }

// Valid reports whether the value belongs to the server vocabulary.
func (s Server) Valid() bool {
	switch s {
	case ServerUnknown, ServerStarting, ServerPreparing, ServerRunning,
		ServerReady, ServerStopping, ServerStopped, ServerError:
		return true
	}
	return false
}
