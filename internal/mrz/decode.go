package mrz

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gmsas95/idscan/internal/extract"
)

var (
	// ErrNoLines means the text did not normalize to two lines
	ErrNoLines = errors.New("mrz: text does not hold two lines")
	// ErrMalformed means the lines could not be sliced into fields
	ErrMalformed = errors.New("mrz: malformed lines")
)

var invalidChars = regexp.MustCompile(`[^A-Z0-9<]`)

// Sex is the decoded holder sex
type Sex string

const (
	Male        Sex = "Male"
	Female      Sex = "Female"
	Unspecified Sex = "Unspecified"
)

func sexOf(code byte) Sex {
	switch code {
	case 'M':
		return Male
	case 'F':
		return Female
	}
	return Unspecified
}

// Record is a decoded TD3 zone. Decode yields either a complete record or none.
type Record struct {
	DocumentType   string
	IssuingCountry string
	Surname        string
	GivenNames     string
	PassportNumber string
	Nationality    string
	DateOfBirth    Date
	Sex            Sex
	ExpiryDate     Date
	Checks         Checks
}

// Decode slices two normalized lines into a Record. Characters outside
// [A-Z0-9<] become filler first. Dates are windowed relative to now.
func Decode(lines Lines, now time.Time) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	l1 := sanitize(lines[0])
	l2 := sanitize(lines[1])

	surname, given := splitName(l1[5:LineLength])
	return &Record{
		DocumentType:   l1[0:1],
		IssuingCountry: l1[2:5],
		Surname:        surname,
		GivenNames:     given,
		PassportNumber: strings.ReplaceAll(l2[0:9], string(Filler), ""),
		Nationality:    l2[10:13],
		DateOfBirth:    ParseDate(l2[13:19], now),
		Sex:            sexOf(l2[20]),
		ExpiryDate:     ParseDate(l2[21:27], now),
		Checks:         verify(l2),
	}, nil
}

func sanitize(line string) string {
	return pad(invalidChars.ReplaceAllString(strings.ToUpper(line), string(Filler)))
}

// splitName splits the name field on the first double filler. Given names
// fall back to the not-found sentinel.
func splitName(field string) (string, string) {
	surname, given, _ := strings.Cut(field, "<<")
	given = nameText(given)
	if given == "" {
		given = extract.NotFound
	}
	return nameText(surname), given
}

func nameText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, string(Filler), " "))
}

// Parse normalizes and decodes raw text, returning nil when either step fails
func Parse(raw string, now time.Time) *Record {
	rec, err := ParseErr(raw, now)
	if err != nil {
		return nil
	}
	return rec
}

// ParseErr is Parse reporting why decoding failed
func ParseErr(raw string, now time.Time) (*Record, error) {
	lines, ok := Normalize(raw)
	if !ok {
		return nil, ErrNoLines
	}
	return Decode(lines, now)
}

// Result pairs the raw recognized text with its decoded record. RawText is
// always kept so failed decodes can be diagnosed.
type Result struct {
	RawText string  `json:"raw_mrz_text" yaml:"raw_mrz_text"`
	Parsed  *Record `json:"parsed_data" yaml:"parsed_data"`
}

// NewResult decodes raw into a Result
func NewResult(raw string, now time.Time) Result {
	return Result{RawText: raw, Parsed: Parse(raw, now)}
}

// Field is one rendered record entry
type Field struct {
	Key   string
	Value string
}

// Fields renders the record in its canonical order with snake_case keys
func (r *Record) Fields() []Field {
	return []Field{
		{"document_type", r.DocumentType},
		{"issuing_country", r.IssuingCountry},
		{"surname", r.Surname},
		{"given_names", r.GivenNames},
		{"passport_number", r.PassportNumber},
		{"nationality", r.Nationality},
		{"date_of_birth", r.DateOfBirth.Raw},
		{"date_of_birth_yyyy_mm_dd", r.DateOfBirth.ISO},
		{"date_of_birth_dd_mm_yyyy", r.DateOfBirth.DMY},
		{"sex", string(r.Sex)},
		{"expiry_date", r.ExpiryDate.Raw},
		{"expiry_date_yyyy_mm_dd", r.ExpiryDate.ISO},
		{"expiry_date_dd_mm_yyyy", r.ExpiryDate.DMY},
	}
}

// flatRecord is the wire shape of Record
type flatRecord struct {
	DocumentType   string `json:"document_type" yaml:"document_type"`
	IssuingCountry string `json:"issuing_country" yaml:"issuing_country"`
	Surname        string `json:"surname" yaml:"surname"`
	GivenNames     string `json:"given_names" yaml:"given_names"`
	PassportNumber string `json:"passport_number" yaml:"passport_number"`
	Nationality    string `json:"nationality" yaml:"nationality"`
	DateOfBirth    string `json:"date_of_birth" yaml:"date_of_birth"`
	DateOfBirthISO string `json:"date_of_birth_yyyy_mm_dd" yaml:"date_of_birth_yyyy_mm_dd"`
	DateOfBirthDMY string `json:"date_of_birth_dd_mm_yyyy" yaml:"date_of_birth_dd_mm_yyyy"`
	Sex            Sex    `json:"sex" yaml:"sex"`
	ExpiryDate     string `json:"expiry_date" yaml:"expiry_date"`
	ExpiryDateISO  string `json:"expiry_date_yyyy_mm_dd" yaml:"expiry_date_yyyy_mm_dd"`
	ExpiryDateDMY  string `json:"expiry_date_dd_mm_yyyy" yaml:"expiry_date_dd_mm_yyyy"`
	Checks         Checks `json:"checks" yaml:"checks"`
}

func (r *Record) flat() flatRecord {
	return flatRecord{
		DocumentType:   r.DocumentType,
		IssuingCountry: r.IssuingCountry,
		Surname:        r.Surname,
		GivenNames:     r.GivenNames,
		PassportNumber: r.PassportNumber,
		Nationality:    r.Nationality,
		DateOfBirth:    r.DateOfBirth.Raw,
		DateOfBirthISO: r.DateOfBirth.ISO,
		DateOfBirthDMY: r.DateOfBirth.DMY,
		Sex:            r.Sex,
		ExpiryDate:     r.ExpiryDate.Raw,
		ExpiryDateISO:  r.ExpiryDate.ISO,
		ExpiryDateDMY:  r.ExpiryDate.DMY,
		Checks:         r.Checks,
	}
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.flat())
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var f flatRecord
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Record{
		DocumentType:   f.DocumentType,
		IssuingCountry: f.IssuingCountry,
		Surname:        f.Surname,
		GivenNames:     f.GivenNames,
		PassportNumber: f.PassportNumber,
		Nationality:    f.Nationality,
		DateOfBirth:    Date{Raw: f.DateOfBirth, ISO: f.DateOfBirthISO, DMY: f.DateOfBirthDMY},
		Sex:            f.Sex,
		ExpiryDate:     Date{Raw: f.ExpiryDate, ISO: f.ExpiryDateISO, DMY: f.ExpiryDateDMY},
		Checks:         f.Checks,
	}
	return nil
}

func (r *Record) MarshalYAML() (interface{}, error) {
	return r.flat(), nil
}
