package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gmsas95/idscan/internal/ocr"
)

func conf(text string, c float64, order int) ocr.Line {
	return ocr.Line{Text: text, Confidence: ocr.Conf(c), Order: order}
}

func TestExtractSSN_EstablishedFor(t *testing.T) {
	rec := ExtractSSN([]ocr.Line{
		conf("SOCIAL SECURITY", 0.95, 0),
		conf("123-45-6789", 0.9, 1),
		conf("THIS NUMBER HAS BEEN ESTABLISHED FOR", 0.9, 2),
		conf("JOHN SMITH", 0.9, 3),
		conf("John Smith", 0.6, 4),
		conf("SIGNATURE", 0.9, 5),
	})

	assert.Equal(t, KindSSN, rec.Kind)
	assert.Equal(t, Found("123-45-6789"), rec.DocNumber)
	assert.Equal(t, Found("JOHN SMITH"), rec.Name)
	assert.Equal(t, "established-for", rec.Sources["name"])
	assert.Equal(t, Found("John Smith"), rec.Signature)
	assert.Equal(t, "below-name", rec.Sources["signature"])
	assert.False(t, rec.Region.Found)
}

func TestSSNNumberChain(t *testing.T) {
	tests := []struct {
		name  string
		lines []ocr.Line
		want  Field
	}{
		{"split joined with previous line", []ocr.Line{conf("123", 0.9, 0), conf("4567-8901", 0.9, 1)}, Found("123-45-6789")},
		{"wide middle group", []ocr.Line{conf("123-45678-9012", 0.9, 0)}, Found("123-45-6789")},
		{"specimen", []ocr.Line{conf("XXX-XX-XXXX", 0.9, 0)}, Found(SpecimenSSN)},
		{"digit run", ocr.FromTexts("SSN 123456789"), Found("123-45-6789")},
		{"low confidence", []ocr.Line{conf("123-45-6789", 0.2, 0)}, Missing()},
		{"split without prefix line", []ocr.Line{conf("4567-8901", 0.9, 0)}, Missing()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := SSNNumberChain().Run(NewInput(tt.lines))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSSNNameChain_UpperPair(t *testing.T) {
	rec := ExtractSSN([]ocr.Line{
		conf("JOHN", 0.9, 0),
		conf("SMiTH", 0.9, 1),
		conf("John Smith", 0.7, 2),
	})

	assert.Equal(t, Found("JOHN SMITH"), rec.Name)
	assert.Equal(t, "upper-pair", rec.Sources["name"])
	assert.Equal(t, Found("John Smith"), rec.Signature)
}

func TestSSNNameChain_LowConfidencePair(t *testing.T) {
	got, src := SSNNameChain().Run(NewInput([]ocr.Line{
		conf("JOHN", 0.7, 0),
		conf("SMITH", 0.9, 1),
		conf("JANE DOE", 0.4, 2),
	}))
	assert.Equal(t, Found("JANE DOE"), got)
	assert.Equal(t, "upper-words", src)
}

func TestSignatureChain_Caption(t *testing.T) {
	rec := ExtractSSN(ocr.FromTexts("SIGNATURE", "Jane Q Doe"))

	assert.False(t, rec.Name.Found)
	assert.Equal(t, Found("Jane Q Doe"), rec.Signature)
	assert.Equal(t, "below-caption", rec.Sources["signature"])
}

func TestSignatureChain_RejectsCapitals(t *testing.T) {
	got, _ := SignatureChain(Missing()).Run(NewInput(ocr.FromTexts("SIGNATURE", "JANE DOE")))
	assert.False(t, got.Found)
}
