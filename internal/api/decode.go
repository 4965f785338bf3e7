package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// frameHeader is the minimal shape probed to discriminate a frame. Tagged
// frames carry "isa"; named-event frames carry "event" plus "data".
type frameHeader struct {
	Isa   string          `json:"isa"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeFrame parses one inbound text frame into typed messages. Both channel
// framings are accepted: a single tagged object, or a named event wrapping a
// payload. Unknown tags, unknown events, and payloads missing required fields
// are rejected here so nothing malformed reaches the reconciler.
func DecodeFrame(payload []byte) ([]Message, error) {
	var header frameHeader
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, fmt.Errorf("api: decode frame: %w", err)
	}

	switch {
	case header.Isa != "":
		msg, err := decodeTagged(header.Isa, payload)
		if err != nil {
			return nil, err
		}
		return []Message{msg}, nil
	case header.Event != "":
		return decodeNamed(header.Event, header.Data)
	default:
		return nil, fmt.Errorf("api: frame carries neither isa tag nor event name")
	}
}

func decodeTagged(isa string, payload []byte) (Message, error) {
	switch isa {
	case TagDownloadItem:
		var item DownloadItem
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, fmt.Errorf("api: decode %s: %w", isa, err)
		}
		if err := validateDownloadItem(item); err != nil {
			return nil, err
		}
		return DownloadItemMessage{Item: item}, nil
	case TagWingmanItem:
		var item WingmanItem
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, fmt.Errorf("api: decode %s: %w", isa, err)
		}
		if err := validateWingmanItem(&item); err != nil {
			return nil, err
		}
		return WingmanItemMessage{Item: item}, nil
	case TagDownloadServer, TagWingmanServer:
		var st ServerStatus
		if err := json.Unmarshal(payload, &st); err != nil {
			return nil, fmt.Errorf("api: decode %s: %w", isa, err)
		}
		if err := validateServerStatus(st); err != nil {
			return nil, err
		}
		if isa == TagDownloadServer {
			return DownloadServerMessage{Status: st}, nil
		}
		return WingmanServerMessage{Status: st}, nil
	default:
		return nil, fmt.Errorf("api: unknown isa tag %q", isa)
	}
}

func decodeNamed(event string, data json.RawMessage) ([]Message, error) {
	switch event {
	case EventDownloadItems:
		var items []DownloadItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("api: decode %s: %w", event, err)
		}
		seen := make(map[DownloadKey]struct{}, len(items))
		msgs := make([]Message, 0, len(items))
		for _, item := range items {
			if err := validateDownloadItem(item); err != nil {
				return nil, err
			}
			if _, dup := seen[item.Key()]; dup {
				return nil, fmt.Errorf("api: duplicate download key %s in %s batch", item.Key(), event)
			}
			seen[item.Key()] = struct{}{}
			msgs = append(msgs, DownloadItemMessage{Item: item})
		}
		return msgs, nil
	case EventWingmanItems:
		var items []WingmanItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("api: decode %s: %w", event, err)
		}
		seen := make(map[string]struct{}, len(items))
		msgs := make([]Message, 0, len(items))
		for i := range items {
			if err := validateWingmanItem(&items[i]); err != nil {
				return nil, err
			}
			if _, dup := seen[items[i].Alias]; dup {
				return nil, fmt.Errorf("api: duplicate alias %q in %s batch", items[i].Alias, event)
			}
			seen[items[i].Alias] = struct{}{}
			msgs = append(msgs, WingmanItemMessage{Item: items[i]})
		}
		return msgs, nil
	case EventDownloadServerStatus, EventWingmanServerStatus:
		var st ServerStatus
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("api: decode %s: %w", event, err)
		}
		if err := validateServerStatus(st); err != nil {
			return nil, err
		}
		if event == EventDownloadServerStatus {
			return []Message{DownloadServerMessage{Status: st}}, nil
		}
		return []Message{WingmanServerMessage{Status: st}}, nil
	default:
		return nil, fmt.Errorf("api: unknown event %q", event)
	}
}

func validateDownloadItem(item DownloadItem) error {
	if strings.TrimSpace(item.ModelRepo) == "" || strings.TrimSpace(item.FilePath) == "" {
		return fmt.Errorf("api: download item missing modelRepo or filePath")
	}
	if !item.Status.Valid() {
		return fmt.Errorf("api: download item %s carries unknown status %q", item.Key(), item.Status)
	}
	return nil
}

// validateWingmanItem trims the alias in place; a blank alias never identifies
// a session and must not enter any collection.
func validateWingmanItem(item *WingmanItem) error {
	item.Alias = strings.TrimSpace(item.Alias)
	if item.Alias == "" {
		return fmt.Errorf("api: wingman item with blank alias")
	}
	if !item.Status.Valid() {
		return fmt.Errorf("api: wingman item %q carries unknown status %q", item.Alias, item.Status)
	}
	return nil
}

func validateServerStatus(st ServerStatus) error {
	if !st.Status.Valid() {
		return fmt.Errorf("api: server status %q not recognized", st.Status)
	}
	return nil
}
