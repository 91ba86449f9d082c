package extract

import (
	"github.com/gmsas95/idscan/internal/ocr"
)

// ExtractLicense assembles a driving-license record. Region is resolved first
// because it selects the document-number policy; every other field is
// independent. The parsed key-value pairs are returned for diagnostics.
func ExtractLicense(lines []ocr.Line, p Profile) (*Record, *KeyValues) {
	in := NewInput(lines)
	rec := NewRecord(KindLicense)

	rec.set("region", &rec.Region, DetectRegion(in.Texts), "region")

	f, src := p.DocNumberChain(rec.Region).Run(in)
	rec.set("doc_number", &rec.DocNumber, f, src)

	f, src = ExpiryChain().Run(in)
	rec.set("expiry_date", &rec.ExpiryDate, f, src)

	f, src = SexChain().Run(in)
	rec.set("sex", &rec.Sex, f, src)

	f, src = p.NameChain().Run(in)
	rec.set("name", &rec.Name, f, src)

	return rec, in.KV
}
