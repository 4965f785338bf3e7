// Package api defines the wire contract shared with the Wingman backend:
// the JSON shapes pushed over the channel and the decode boundary that turns
// raw frames into typed messages.
package api

import (
	"fmt"

	"github.com/curtisgray/wingman-sub001/internal/status"
)

// Tag values carried in the "isa" field of tagged frames.
const (
	TagDownloadItem   = "DownloadItem"
	TagDownloadServer = "DownloadServer"
	TagWingmanItem    = "WingmanItem"
	TagWingmanServer  = "WingmanServer"
)

// Named events used by deployments that label frames instead of tagging them.
const (
	EventDownloadItems        = "downloadItems"
	EventDownloadServerStatus = "downloadServerStatus"
	EventWingmanItems         = "wingmanItems"
	EventWingmanServerStatus  = "wingmanServerStatus"
)

// DownloadKey is the business key identifying one download.
type DownloadKey struct {
	ModelRepo string
	FilePath  string
}

// String renders the key for logs.
func (k DownloadKey) String() string {
	return fmt.Sprintf("%s:%s", k.ModelRepo, k.FilePath)
}

// DownloadItem is one tracked model file download. Timestamps are epoch
// milliseconds as sent by the backend.
type DownloadItem struct {
	ModelRepo       string          `json:"modelRepo"`
	FilePath        string          `json:"filePath"`
	Status          status.Download `json:"status"`
	Progress        float64         `json:"progress"`
	DownloadedBytes int64           `json:"downloadedBytes"`
	TotalBytes      int64           `json:"totalBytes"`
	DownloadSpeed   string          `json:"downloadSpeed"`
	Created         int64           `json:"created"`
	Updated         int64           `json:"updated"`
	Error           string          `json:"error,omitempty"`
}

// Key returns the business key of the item.
func (i DownloadItem) Key() DownloadKey {
	return DownloadKey{ModelRepo: i.ModelRepo, FilePath: i.FilePath}
}

// WingmanItem is one tracked inference session, keyed by alias.
type WingmanItem struct {
	Alias     string           `json:"alias"`
	ModelRepo string           `json:"modelRepo"`
	FilePath  string           `json:"filePath"`
	Force     bool             `json:"force"`
	Status    status.Inference `json:"status"`
	Created   int64            `json:"created"`
	Updated   int64            `json:"updated"`
	Error     string           `json:"error,omitempty"`
}

// ServerStatus is the singleton lifecycle record of one backend service.
// It is replaced wholesale on every accepted update.
type ServerStatus struct {
	Status          status.Server `json:"status"`
	CurrentDownload *DownloadItem `json:"currentDownload,omitempty"`
	CurrentWingman  *WingmanItem  `json:"currentWingman,omitempty"`
	Error           string        `json:"error,omitempty"`
	Created         int64         `json:"created"`
	Updated         int64         `json:"updated"`
}

// Message is one decoded element of an inbound frame.
type Message interface {
	message()
}

// DownloadItemMessage carries a download item update.
type DownloadItemMessage struct {
	Item DownloadItem
}

// DownloadServerMessage carries the download service status.
type DownloadServerMessage struct {
	Status ServerStatus
}

// WingmanItemMessage carries an inference session update.
type WingmanItemMessage struct {
	Item WingmanItem
}

// WingmanServerMessage carries the inference service status.
type WingmanServerMessage struct {
	Status ServerStatus
}

func (DownloadItemMessage) message()   {}
func (DownloadServerMessage) message() {}
func (WingmanItemMessage) message()    {}
func (WingmanServerMessage) message()  {}
