package domain

import "encoding/json"

// ChangePayload wraps a JSON snapshot of an entity before or after a change.
// Snapshots are taken at record time so later mutations inside the same
// transaction never leak into earlier changes.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload builds a payload wrapper from raw JSON. The bytes are cloned.
func NewChangePayload(raw json.RawMessage) ChangePayload {
	payload := ChangePayload{defined: true}
	if raw != nil {
		payload.raw = cloneRawMessage(raw)
	}
	return payload
}

// PayloadOf marshals an entity into a ChangePayload. Entities are plain
// structs, so marshalling cannot fail; an error yields an undefined payload.
func PayloadOf[T any](value T) ChangePayload {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}
	}
	return NewChangePayload(raw)
}

// Defined reports whether the payload has been initialized.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// Raw returns a cloned copy of the underlying JSON bytes.
func (p ChangePayload) Raw() json.RawMessage {
	if !p.defined || len(p.raw) == 0 {
		return nil
	}
	return cloneRawMessage(p.raw)
}

// DecodePayload unmarshals a payload into T. It reports false when the
// payload is undefined, empty, or not decodable as T.
func DecodePayload[T any](payload ChangePayload) (T, bool) {
	var out T
	if !payload.defined || len(payload.raw) == 0 {
		return out, false
	}
	if err := json.Unmarshal(payload.raw, &out); err != nil {
		return out, false
	}
	return out, true
}

func cloneRawMessage(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cloned := make(json.RawMessage, len(raw))
	copy(cloned, raw)
	return cloned
}
