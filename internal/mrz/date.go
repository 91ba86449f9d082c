package mrz

import (
	"time"
)

// Date is a YYMMDD MRZ date with its derived renderings. ISO and DMY are
// empty when Raw is not a real calendar date.
type Date struct {
	Raw string `json:"raw"`
	ISO string `json:"iso"`
	DMY string `json:"dmy"`
}

// Valid reports whether the derived renderings are set
func (d Date) Valid() bool {
	return d.ISO != ""
}

// Century returns the century for a two-digit year: 1900 when yy is greater
// than the current two-digit year, 2000 otherwise.
func Century(yy int, now time.Time) int {
	if yy > now.Year()%100 {
		return 1900
	}
	return 2000
}

// ParseDate decodes raw as YYMMDD relative to now
func ParseDate(raw string, now time.Time) Date {
	d := Date{Raw: raw}
	if len(raw) != 6 {
		return d
	}
	var n [3]int
	for i := 0; i < 3; i++ {
		hi, lo := raw[2*i], raw[2*i+1]
		if !isDigit(hi) || !isDigit(lo) {
			return d
		}
		n[i] = int(hi-'0')*10 + int(lo-'0')
	}

	year := Century(n[0], now) + n[0]
	t := time.Date(year, time.Month(n[1]), n[2], 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != n[1] || t.Day() != n[2] {
		return d
	}
	d.ISO = t.Format("2006-01-02")
	d.DMY = t.Format("02-01-2006")
	return d
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
