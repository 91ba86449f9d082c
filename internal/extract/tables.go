package extract

import (
	"fmt"
	"regexp"
)

// states lists the 50 full region names; order decides containment ties
var states = []string{
	"ALABAMA", "ALASKA", "ARIZONA", "ARKANSAS", "CALIFORNIA", "COLORADO", "CONNECTICUT",
	"DELAWARE", "FLORIDA", "GEORGIA", "HAWAII", "IDAHO", "ILLINOIS", "INDIANA", "IOWA",
	"KANSAS", "KENTUCKY", "LOUISIANA", "MAINE", "MARYLAND", "MASSACHUSETTS", "MICHIGAN",
	"MINNESOTA", "MISSISSIPPI", "MISSOURI", "MONTANA", "NEBRASKA", "NEVADA", "NEW HAMPSHIRE",
	"NEW JERSEY", "NEW MEXICO", "NEW YORK", "NORTH CAROLINA", "NORTH DAKOTA", "OHIO",
	"OKLAHOMA", "OREGON", "PENNSYLVANIA", "RHODE ISLAND", "SOUTH CAROLINA", "SOUTH DAKOTA",
	"TENNESSEE", "TEXAS", "UTAH", "VERMONT", "VIRGINIA", "WASHINGTON", "WEST VIRGINIA",
	"WISCONSIN", "WYOMING",
}

type abbreviation struct {
	code  string
	state string
	re    *regexp.Regexp
}

var abbreviations = buildAbbreviations([][2]string{
	{"AL", "ALABAMA"}, {"AK", "ALASKA"}, {"AZ", "ARIZONA"}, {"AR", "ARKANSAS"}, {"CA", "CALIFORNIA"},
	{"CO", "COLORADO"}, {"CT", "CONNECTICUT"}, {"DE", "DELAWARE"}, {"FL", "FLORIDA"}, {"GA", "GEORGIA"},
	{"HI", "HAWAII"}, {"ID", "IDAHO"}, {"IL", "ILLINOIS"}, {"IN", "INDIANA"}, {"IA", "IOWA"},
	{"KS", "KANSAS"}, {"KY", "KENTUCKY"}, {"LA", "LOUISIANA"}, {"ME", "MAINE"}, {"MD", "MARYLAND"},
	{"MA", "MASSACHUSETTS"}, {"MI", "MICHIGAN"}, {"MN", "MINNESOTA"}, {"MS", "MISSISSIPPI"},
	{"MO", "MISSOURI"}, {"MT", "MONTANA"}, {"NE", "NEBRASKA"}, {"NV", "NEVADA"}, {"NH", "NEW HAMPSHIRE"},
	{"NJ", "NEW JERSEY"}, {"NM", "NEW MEXICO"}, {"NY", "NEW YORK"}, {"NC", "NORTH CAROLINA"},
	{"ND", "NORTH DAKOTA"}, {"OH", "OHIO"}, {"OK", "OKLAHOMA"}, {"OR", "OREGON"}, {"PA", "PENNSYLVANIA"},
	{"RI", "RHODE ISLAND"}, {"SC", "SOUTH CAROLINA"}, {"SD", "SOUTH DAKOTA"}, {"TN", "TENNESSEE"},
	{"TX", "TEXAS"}, {"UT", "UTAH"}, {"VT", "VERMONT"}, {"VA", "VIRGINIA"}, {"WA", "WASHINGTON"},
	{"WV", "WEST VIRGINIA"}, {"WI", "WISCONSIN"}, {"WY", "WYOMING"},
})

func buildAbbreviations(pairs [][2]string) []abbreviation {
	out := make([]abbreviation, len(pairs))
	for i, p := range pairs {
		out[i] = abbreviation{
			code:  p[0],
			state: p[1],
			re:    regexp.MustCompile(fmt.Sprintf(`\b%s\b`, p[0])),
		}
	}
	return out
}

// strictLabels are the field captions printed on a license
var strictLabels = []string{
	"DRIVER", "LICENSE", "DLN", "ID", "SEX", "DOB", "CLASS", "RESTR", "EYES",
	"HEIGHT", "CITY", "ZIP", "BIRTH", "EXP", "ADDR", "ORGANDONOR", "VISITPA", "DD",
	"END", "SAMPLE",
}

// permissiveLabels adds captions seen on other regions' layouts
var permissiveLabels = append(append([]string{}, strictLabels...),
	"NAME", "HGT", "WGT", "HAIR", "ISS", "DONOR", "VETERAN", "DUPS", "USA", "STATE",
)

var (
	strictMarkers     = []string{"DLN", "DL", "LIC", "ID"}
	permissiveMarkers = []string{"DLN", "DL", "LIC", "ID", "NUM", "NO"}
	regionMarkers     = []string{"DLN", "DL"}
)
