// Package reconciler merges the backend's push events into a consistent local
// view of downloads, inference sessions, and service status.
//
// The reconciler is the only writer of observed state. Control commands go out
// through the dispatcher and come back as ordinary push events; nothing here
// calls back into the transport.
package reconciler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/curtisgray/wingman-sub001/internal/api"
	"github.com/curtisgray/wingman-sub001/internal/eventbus"
	"github.com/curtisgray/wingman-sub001/internal/status"
)

// Reconciler owns the materialized collections built from inbound events.
// Consumers receive copies; the collections themselves are never shared.
type Reconciler struct {
	logger *log.Logger
	bus    *eventbus.Bus
	strict bool

	downloadScope *api.DownloadKey
	aliasScope    string

	mu             sync.RWMutex
	downloads      map[api.DownloadKey]api.DownloadItem
	wingman        map[string]api.WingmanItem
	downloadServer api.ServerStatus
	wingmanServer  api.ServerStatus
	version        uint64

	// Scoped views hold at most one current item.
	scopedDownload *api.DownloadItem
	scopedWingman  *api.WingmanItem
}

// Option customises reconciler behaviour.
type Option func(*Reconciler)

// WithLogger overrides the logger used for dropped-event messages.
func WithLogger(logger *log.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBus publishes change notifications on the given event bus.
func WithBus(bus *eventbus.Bus) Option {
	return func(r *Reconciler) {
		r.bus = bus
	}
}

// WithDownloadScope restricts the download view to a single key. Accepted
// events for other keys clear the view instead of joining the collection.
func WithDownloadScope(modelRepo, filePath string) Option {
	return func(r *Reconciler) {
		r.downloadScope = &api.DownloadKey{ModelRepo: modelRepo, FilePath: filePath}
	}
}

// WithAliasScope restricts the inference view to a single alias, with the
// same single-item semantics as WithDownloadScope.
func WithAliasScope(alias string) Option {
	return func(r *Reconciler) {
		r.aliasScope = alias
	}
}

// WithStrictInvariants makes programming-invariant violations panic instead
// of being logged. Intended for development builds and tests.
func WithStrictInvariants() Option {
	return func(r *Reconciler) {
		r.strict = true
	}
}

// New constructs a reconciler with empty collections and both service
// statuses set to unknown.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		logger:         log.Default(),
		downloads:      make(map[api.DownloadKey]api.DownloadItem),
		wingman:        make(map[string]api.WingmanItem),
		downloadServer: unknownStatus(),
		wingmanServer:  unknownStatus(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func unknownStatus() api.ServerStatus {
	return api.ServerStatus{Status: status.ServerUnknown}
}

// Run consumes messages until ctx is done or the channel closes.
func (r *Reconciler) Run(ctx context.Context, events <-chan api.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			r.Apply(msg)
		}
	}
}

// Apply merges one inbound message into the view. It never fails: events the
// view cannot use (unrecognized types, stale transitions) are logged and
// dropped so a bad frame can never poison the caller.
func (r *Reconciler) Apply(msg api.Message) {
	switch m := msg.(type) {
	case api.DownloadItemMessage:
		r.applyDownload(m.Item)
	case api.WingmanItemMessage:
		r.applyWingman(m.Item)
	case api.DownloadServerMessage:
		r.applyServer(eventbus.ServiceDownload, m.Status)
	case api.WingmanServerMessage:
		r.applyServer(eventbus.ServiceWingman, m.Status)
	default:
		r.invariant("unrecognized message type %T, dropped", msg)
	}
}

func (r *Reconciler) applyDownload(item api.DownloadItem) {
	key := item.Key()

	r.mu.Lock()

	if r.downloadScope != nil {
		if key != *r.downloadScope {
			r.scopedDownload = nil
			r.version++
			r.mu.Unlock()
			return
		}
		if prev := r.scopedDownload; prev != nil {
			if !prev.Status.CanTransition(item.Status) {
				r.mu.Unlock()
				r.logger.Printf("[Reconciler] dropping stale download transition %s -> %s for %s",
					prev.Status, item.Status, key)
				return
			}
			if item.Updated < prev.Updated {
				item.Updated = prev.Updated
			}
		}
		r.scopedDownload = &item
		r.version++
		version := r.version
		r.mu.Unlock()
		r.publishDownload(item, version)
		return
	}

	prev, exists := r.downloads[key]
	if exists {
		if !prev.Status.CanTransition(item.Status) {
			r.mu.Unlock()
			r.logger.Printf("[Reconciler] dropping stale download transition %s -> %s for %s",
				prev.Status, item.Status, key)
			return
		}
		if item.Updated < prev.Updated {
			item.Updated = prev.Updated
		}
	}
	r.downloads[key] = item
	r.version++
	version := r.version
	r.mu.Unlock()

	r.publishDownload(item, version)
}

func (r *Reconciler) applyWingman(item api.WingmanItem) {
	if item.Alias == "" {
		r.invariant("wingman item with blank alias reached the reconciler")
		return
	}

	r.mu.Lock()

	if r.aliasScope != "" {
		if item.Alias != r.aliasScope {
			r.scopedWingman = nil
			r.version++
			r.mu.Unlock()
			return
		}
		if prev := r.scopedWingman; prev != nil {
			if !prev.Status.CanTransition(item.Status) {
				r.mu.Unlock()
				r.logger.Printf("[Reconciler] dropping stale wingman transition %s -> %s for %q",
					prev.Status, item.Status, item.Alias)
				return
			}
			if item.Updated < prev.Updated {
				item.Updated = prev.Updated
			}
		}
		r.scopedWingman = &item
		r.version++
		version := r.version
		r.mu.Unlock()
		r.publishWingman(item, version)
		return
	}

	prev, exists := r.wingman[item.Alias]
	if exists {
		if !prev.Status.CanTransition(item.Status) {
			r.mu.Unlock()
			r.logger.Printf("[Reconciler] dropping stale wingman transition %s -> %s for %q",
				prev.Status, item.Status, item.Alias)
			return
		}
		if item.Updated < prev.Updated {
			item.Updated = prev.Updated
		}
	}
	r.wingman[item.Alias] = item
	r.version++
	version := r.version
	r.mu.Unlock()

	r.publishWingman(item, version)
}

// applyServer replaces the singleton record wholesale: backend lifecycle has
// no per-job workflow to guard, the latest word always wins.
func (r *Reconciler) applyServer(service eventbus.Service, st api.ServerStatus) {
	r.mu.Lock()
	switch service {
	case eventbus.ServiceDownload:
		r.downloadServer = st
	case eventbus.ServiceWingman:
		r.wingmanServer = st
	}
	r.version++
	version := r.version
	r.mu.Unlock()

	td := eventbus.Downloads.Server
	if service == eventbus.ServiceWingman {
		td = eventbus.Wingman.Server
	}
	eventbus.Publish(context.Background(), r.bus, td, eventbus.SourceReconciler,
		eventbus.ServerChangeEvent{Service: service, Status: st, Version: version})
}

func (r *Reconciler) publishDownload(item api.DownloadItem, version uint64) {
	eventbus.Publish(context.Background(), r.bus, eventbus.Downloads.Items, eventbus.SourceReconciler,
		eventbus.DownloadChangeEvent{Item: item, Version: version})
}

func (r *Reconciler) publishWingman(item api.WingmanItem, version uint64) {
	eventbus.Publish(context.Background(), r.bus, eventbus.Wingman.Items, eventbus.SourceReconciler,
		eventbus.WingmanChangeEvent{Item: item, Version: version})
}

// invariant reports a programming-invariant violation. Strict mode turns it
// into a panic so development builds fail loudly.
func (r *Reconciler) invariant(format string, args ...any) {
	if r.strict {
		panic(fmt.Sprintf("reconciler: "+format, args...))
	}
	r.logger.Printf("[Reconciler] invariant violation: "+format, args...)
}

// Downloads returns a snapshot of the download collection, ordered by
// creation time then key. In scoped mode the slice holds at most one item.
func (r *Reconciler) Downloads() []api.DownloadItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.downloadScope != nil {
		if r.scopedDownload == nil {
			return nil
		}
		return []api.DownloadItem{*r.scopedDownload}
	}

	out := make([]api.DownloadItem, 0, len(r.downloads))
	for _, item := range r.downloads {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created != out[j].Created {
			return out[i].Created < out[j].Created
		}
		if out[i].ModelRepo != out[j].ModelRepo {
			return out[i].ModelRepo < out[j].ModelRepo
		}
		return out[i].FilePath < out[j].FilePath
	})
	return out
}

// Download returns the stored item for the given key.
func (r *Reconciler) Download(modelRepo, filePath string) (api.DownloadItem, bool) {
	key := api.DownloadKey{ModelRepo: modelRepo, FilePath: filePath}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.downloadScope != nil {
		if r.scopedDownload != nil && r.scopedDownload.Key() == key {
			return *r.scopedDownload, true
		}
		return api.DownloadItem{}, false
	}

	item, ok := r.downloads[key]
	return item, ok
}

// WingmanItems returns a snapshot of the inference collection, ordered by
// creation time then alias. In scoped mode the slice holds at most one item.
func (r *Reconciler) WingmanItems() []api.WingmanItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.aliasScope != "" {
		if r.scopedWingman == nil {
			return nil
		}
		return []api.WingmanItem{*r.scopedWingman}
	}

	out := make([]api.WingmanItem, 0, len(r.wingman))
	for _, item := range r.wingman {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created != out[j].Created {
			return out[i].Created < out[j].Created
		}
		return out[i].Alias < out[j].Alias
	})
	return out
}

// WingmanItem returns the stored session for the given alias.
func (r *Reconciler) WingmanItem(alias string) (api.WingmanItem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.aliasScope != "" {
		if r.scopedWingman != nil && r.scopedWingman.Alias == alias {
			return *r.scopedWingman, true
		}
		return api.WingmanItem{}, false
	}

	item, ok := r.wingman[alias]
	return item, ok
}

// DownloadServer returns the download service status record.
func (r *Reconciler) DownloadServer() api.ServerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.downloadServer
}

// WingmanServer returns the inference service status record.
func (r *Reconciler) WingmanServer() api.ServerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wingmanServer
}

// Version returns the collection version marker. It increases on every
// accepted merge, letting subscribers detect change cheaply.
func (r *Reconciler) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Reset discards all collections, e.g. ahead of a full resync. Accepted data
// survives reconnects otherwise.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.downloads = make(map[api.DownloadKey]api.DownloadItem)
	r.wingman = make(map[string]api.WingmanItem)
	r.downloadServer = unknownStatus()
	r.wingmanServer = unknownStatus()
	r.scopedDownload = nil
	r.scopedWingman = nil
	r.version++
}
