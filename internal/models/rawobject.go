package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RawObject is a JSON object that keeps its members in document order.
// Members the program does not understand survive a decode/encode cycle
// untouched.
type RawObject struct {
	members *orderedmap.OrderedMap[string, json.RawMessage]
}

var errNotObject = errors.New("expected JSON object")

func (o *RawObject) init() {
	if o.members == nil {
		o.members = orderedmap.New[string, json.RawMessage]()
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (o *RawObject) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	members := orderedmap.New[string, json.RawMessage]()
	if err := members.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	o.members = members
	return nil
}

// MarshalJSON implements json.Marshaler
func (o RawObject) MarshalJSON() ([]byte, error) {
	if o.members == nil {
		return []byte("{}"), nil
	}
	return o.members.MarshalJSON()
}

// Len returns the number of members
func (o *RawObject) Len() int {
	if o.members == nil {
		return 0
	}
	return o.members.Len()
}

// Keys returns the member names in document order
func (o *RawObject) Keys() []string {
	keys := make([]string, 0, o.Len())
	if o.members == nil {
		return keys
	}
	for pair := o.members.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Has reports whether the member exists and is not null
func (o *RawObject) Has(key string) bool {
	raw, ok := o.Get(key)
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Get returns the raw value of a member
func (o *RawObject) Get(key string) (json.RawMessage, bool) {
	if o.members == nil {
		return nil, false
	}
	return o.members.Get(key)
}

// Decode unmarshals a member into dst. It reports false when the member
// is absent or null.
func (o *RawObject) Decode(key string, dst any) (bool, error) {
	if !o.Has(key) {
		return false, nil
	}
	raw, _ := o.Get(key)
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("member %q: %w", key, err)
	}
	return true, nil
}

// Set replaces a member in place or appends it when it does not exist
func (o *RawObject) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("member %q: %w", key, err)
	}
	o.init()
	o.members.Set(key, raw)
	return nil
}

// Delete removes a member if present
func (o *RawObject) Delete(key string) {
	if o.members != nil {
		o.members.Delete(key)
	}
}

// Into decodes the whole object into a typed record
func (o RawObject) Into(dst any) error {
	b, err := o.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// Clone returns a deep copy
func (o *RawObject) Clone() RawObject {
	var c RawObject
	c.init()
	if o.members == nil {
		return c
	}
	for pair := o.members.Oldest(); pair != nil; pair = pair.Next() {
		c.members.Set(pair.Key, append(json.RawMessage(nil), pair.Value...))
	}
	return c
}
