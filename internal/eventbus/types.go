package eventbus

import (
	"time"

	"github.com/curtisgray/wingman-sub001/internal/api"
)

// Topic identifies a logical channel on the bus.
type Topic string

const (
	TopicDownloadItems  Topic = "downloads.items"
	TopicDownloadServer Topic = "downloads.server"
	TopicWingmanItems   Topic = "wingman.items"
	TopicWingmanServer  Topic = "wingman.server"
	TopicTransportState Topic = "transport.state"
)

// Source describes which component produced an event.
type Source string

const (
	SourceTransport  Source = "transport"
	SourceReconciler Source = "reconciler"
	SourceDispatcher Source = "dispatcher"
	SourceUnknown    Source = "unknown"
)

// Envelope wraps every message published on the bus.
type Envelope struct {
	Topic     Topic
	Timestamp time.Time
	Source    Source
	Payload   any
}

// Service identifies which backend service a server-status event refers to.
type Service string

const (
	ServiceDownload Service = "download"
	ServiceWingman  Service = "wingman"
)

// DownloadChangeEvent is published when the reconciler accepts a download
// item update. Version is the collection version after the merge.
type DownloadChangeEvent struct {
	Item    api.DownloadItem
	Version uint64
}

// WingmanChangeEvent is published when the reconciler accepts an inference
// session update.
type WingmanChangeEvent struct {
	Item    api.WingmanItem
	Version uint64
}

// ServerChangeEvent is published when a service status record is replaced.
type ServerChangeEvent struct {
	Service Service
	Status  api.ServerStatus
	Version uint64
}

// TransportStateEvent notifies consumers about push-channel lifecycle changes.
type TransportStateEvent struct {
	State   string
	Attempt int
	Err     string
}

// Downloads groups download topic descriptors.
var Downloads = struct {
	Items  TopicDef[DownloadChangeEvent]
	Server TopicDef[ServerChangeEvent]
}{
	Items:  NewTopicDef[DownloadChangeEvent](TopicDownloadItems),
	Server: NewTopicDef[ServerChangeEvent](TopicDownloadServer),
}

// Wingman groups inference topic descriptors.
var Wingman = struct {
	Items  TopicDef[WingmanChangeEvent]
	Server TopicDef[ServerChangeEvent]
}{
	Items:  NewTopicDef[WingmanChangeEvent](TopicWingmanItems),
	Server: NewTopicDef[ServerChangeEvent](TopicWingmanServer),
}

// Transport groups push-channel topic descriptors.
var Transport = struct {
	State TopicDef[TransportStateEvent]
}{
	State: NewTopicDef[TransportStateEvent](TopicTransportState),
}
