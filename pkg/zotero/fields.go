package zotero

import (
	"bytes"
	"encoding/json"
	"maps"
)

// rawFields holds the JSON members of an object that the pipeline does not
// model explicitly. They are written back untouched on marshal.
type rawFields map[string]json.RawMessage

// takeString moves key into dst when it holds a JSON string. Values of any
// other type stay in the map so they survive a round trip.
func (f rawFields) takeString(key string, dst *string) {
	raw, ok := f[key]
	if !ok {
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return
	}
	*dst = s
	delete(f, key)
}

// takeScalar reads an identifier member. A JSON string is moved into dst.
// A number or boolean is copied into dst as its JSON text and left in the
// map, so it is written back with its original type.
func (f rawFields) takeScalar(key string, dst *string) {
	raw, ok := f[key]
	if !ok {
		return
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	switch s := v.(type) {
	case string:
		*dst = s
		delete(f, key)
	case float64, bool:
		*dst = string(bytes.TrimSpace(raw))
	}
}

// takeBool moves key into dst when it holds a JSON boolean.
func (f rawFields) takeBool(key string, dst **bool) {
	raw, ok := f[key]
	if !ok {
		return
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return
	}
	*dst = &b
	delete(f, key)
}

// takeRaw moves key into dst verbatim, dropping JSON null.
func (f rawFields) takeRaw(key string, dst *json.RawMessage) {
	raw, ok := f[key]
	if !ok {
		return
	}
	delete(f, key)
	if string(raw) == "null" {
		return
	}
	*dst = append(json.RawMessage(nil), raw...)
}

// takeJSON decodes key into dst. On a type mismatch the member is left in
// place and reported as an error.
func (f rawFields) takeJSON(key string, dst any) error {
	raw, ok := f[key]
	if !ok || string(raw) == "null" {
		delete(f, key)
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	delete(f, key)
	return nil
}

// object renders the pass-through members plus the explicit ones set by the
// caller. Empty strings are omitted.
type object map[string]any

func (f rawFields) object() object {
	out := make(object, len(f)+8)
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (o object) putString(key, value string) {
	if value != "" {
		o[key] = value
	}
}

// putScalar writes an identifier member unless the pass-through value
// already renders to it.
func (o object) putScalar(key, value string) {
	if raw, ok := o[key].(json.RawMessage); ok && string(bytes.TrimSpace(raw)) == value {
		return
	}
	o.putString(key, value)
}

func (o object) putRaw(key string, value json.RawMessage) {
	if len(value) > 0 {
		o[key] = value
	}
}

func (f rawFields) clone() rawFields {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}
