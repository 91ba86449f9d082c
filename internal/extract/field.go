// Package extract turns recognized text lines into identity-document records.
//
// Every field is produced by a Chain of named strategies tried in priority
// order; the first strategy that accepts a value wins. A field no strategy
// accepts is reported as not found rather than as an error, so a record is
// always fully populated.
package extract

import (
	"encoding/json"
)

// NotFound is the sentinel rendered for fields no strategy could resolve
const NotFound = "Not Found"

// Field is an optional extracted value
type Field struct {
	Value string
	Found bool
}

// Found wraps a resolved value
func Found(v string) Field {
	return Field{Value: v, Found: true}
}

// Missing is the unresolved field
func Missing() Field {
	return Field{}
}

// String returns the value or the sentinel
func (f Field) String() string {
	if !f.Found {
		return NotFound
	}
	return f.Value
}

func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Field) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == NotFound || s == "" {
		*f = Missing()
		return nil
	}
	*f = Found(s)
	return nil
}

func (f Field) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

// Kind identifies the document family
type Kind string

const (
	KindLicense  Kind = "license"
	KindSSN      Kind = "ssn"
	KindPassport Kind = "passport"
)

// ParseKind validates a document family name
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindLicense, KindSSN, KindPassport:
		return Kind(s), true
	case "dl", "driving", "driver":
		return KindLicense, true
	case "social":
		return KindSSN, true
	case "mrz":
		return KindPassport, true
	}
	return "", false
}

// Record is the canonical driving-license / social-security-card result
type Record struct {
	Kind       Kind              `json:"kind" yaml:"kind"`
	DocNumber  Field             `json:"doc_number" yaml:"doc_number"`
	ExpiryDate Field             `json:"expiry_date" yaml:"expiry_date"`
	Sex        Field             `json:"sex" yaml:"sex"`
	Name       Field             `json:"name" yaml:"name"`
	Region     Field             `json:"region" yaml:"region"`
	Signature  Field             `json:"signature" yaml:"signature"`
	Sources    map[string]string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// NewRecord returns a record with every field not found
func NewRecord(kind Kind) *Record {
	return &Record{
		Kind:    kind,
		Sources: make(map[string]string),
	}
}

// FoundCount returns how many fields were resolved
func (r *Record) FoundCount() int {
	n := 0
	for _, f := range r.Fields() {
		if f.Found {
			n++
		}
	}
	return n
}

// Fields lists the record fields by name
func (r *Record) Fields() map[string]Field {
	return map[string]Field{
		"doc_number":  r.DocNumber,
		"expiry_date": r.ExpiryDate,
		"sex":         r.Sex,
		"name":        r.Name,
		"region":      r.Region,
		"signature":   r.Signature,
	}
}

func (r *Record) set(name string, dst *Field, f Field, source string) {
	*dst = f
	if f.Found && source != "" {
		r.Sources[name] = source
	}
}
