package events

import "encoding/json"

// RecordedEvent is an event read back from storage. Payload holds the JSON
// of the original event and is what gets marshalled.
type RecordedEvent struct {
	BaseEvent
	Payload json.RawMessage
}

// MarshalJSON returns the stored payload unchanged
func (e RecordedEvent) MarshalJSON() ([]byte, error) {
	if len(e.Payload) == 0 {
		return json.Marshal(e.BaseEvent)
	}
	return e.Payload, nil
}
