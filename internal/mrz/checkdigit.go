package mrz

var checkWeights = [3]int{7, 3, 1}

// CheckDigit computes the ICAO 9303 7-3-1 check digit of s. Digits count as
// their value, letters A-Z as 10-35 and filler as zero.
func CheckDigit(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += charValue(s[i]) * checkWeights[i%3]
	}
	return sum % 10
}

func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 0
}

func checks(field string, digit byte) bool {
	return isDigit(digit) && int(digit-'0') == CheckDigit(field)
}

// Checks reports which TD3 check digits agree with their fields. They are
// informational; a failed check never rejects a record.
type Checks struct {
	Number    bool `json:"number"`
	Birth     bool `json:"birth"`
	Expiry    bool `json:"expiry"`
	Composite bool `json:"composite"`
}

// Valid reports whether every check passed
func (c Checks) Valid() bool {
	return c.Number && c.Birth && c.Expiry && c.Composite
}

func verify(line2 string) Checks {
	return Checks{
		Number:    checks(line2[0:9], line2[9]),
		Birth:     checks(line2[13:19], line2[19]),
		Expiry:    checks(line2[21:27], line2[27]),
		Composite: checks(line2[0:10]+line2[13:20]+line2[21:43], line2[43]),
	}
}
