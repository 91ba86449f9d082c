package extract

import (
	"encoding/json"
	"strings"
)

// separators in priority order
var separators = []string{":", ";", "-", "="}

// KeyValues is an insertion-ordered key to value mapping built from lines
type KeyValues struct {
	keys   []string
	values map[string]string
}

// ParseKeyValues splits each line on the first separator present (tried in
// the order : ; - =) into an uppercased key and a trimmed value. Lines with no
// separator, or with an empty key or value, contribute nothing.
func ParseKeyValues(lines []string) *KeyValues {
	kv := &KeyValues{values: make(map[string]string)}
	for _, line := range lines {
		for _, sep := range separators {
			idx := strings.Index(line, sep)
			if idx < 0 {
				continue
			}
			key := strings.ToUpper(strings.TrimSpace(line[:idx]))
			value := strings.TrimSpace(line[idx+len(sep):])
			if key != "" && value != "" {
				kv.put(key, value)
			}
			break
		}
	}
	return kv
}

func (kv *KeyValues) put(key, value string) {
	if _, ok := kv.values[key]; !ok {
		kv.keys = append(kv.keys, key)
	}
	kv.values[key] = value
}

// Get returns the value for key
func (kv *KeyValues) Get(key string) (string, bool) {
	v, ok := kv.values[key]
	return v, ok
}

// Keys returns keys in first-seen order
func (kv *KeyValues) Keys() []string {
	out := make([]string, len(kv.keys))
	copy(out, kv.keys)
	return out
}

// Len returns the number of pairs
func (kv *KeyValues) Len() int {
	return len(kv.keys)
}

// Find returns the first pair, in key order, whose key contains any marker
// and whose value passes accept.
func (kv *KeyValues) Find(markers []string, accept func(value string) (string, bool)) (string, bool) {
	for _, k := range kv.keys {
		if !containsAny(k, markers) {
			continue
		}
		if v, ok := accept(kv.values[k]); ok {
			return v, true
		}
	}
	return "", false
}

// Map returns a copy of the pairs
func (kv *KeyValues) Map() map[string]string {
	out := make(map[string]string, len(kv.values))
	for k, v := range kv.values {
		out[k] = v
	}
	return out
}

// Lines reconstructs "KEY: value" lines in key order
func (kv *KeyValues) Lines() []string {
	lines := make([]string, len(kv.keys))
	for i, k := range kv.keys {
		lines[i] = k + ": " + kv.values[k]
	}
	return lines
}

func (kv *KeyValues) MarshalJSON() ([]byte, error) {
	return json.Marshal(kv.Map())
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
