package validate

import (
	"encoding/json"
	"io"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// Report is the JSON-serializable validation report printed by ddbinfo.
type Report struct {
	Machine       string                 `json:"machine"`
	Language      string                 `json:"language"`
	Objects       int                    `json:"objects"`
	Locations     int                    `json:"locations"`
	Words         int                    `json:"words"`
	TotalFindings int                    `json:"total_findings"`
	Errors        int                    `json:"errors"`
	Categories    map[string]CategorySum `json:"categories"`
	Findings      []Finding              `json:"findings"`
}

// CategorySum summarizes findings for a single category.
type CategorySum struct {
	Total    int    `json:"total"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
	Label    string `json:"label"`
}

var categoryLabels = map[Category]string{
	CatHeader:     "Header Offsets and Counts",
	CatText:       "Message Texts",
	CatVocabulary: "Vocabulary",
	CatObjects:    "Object Tables",
}

// GenerateReport builds a Report from the validator's current findings.
func GenerateReport(v *Validator) *Report {
	h := v.db.Header
	r := &Report{
		Machine:       h.Machine.String(),
		Language:      h.Language.String(),
		Objects:       v.db.Count(ddb.ListObjects),
		Locations:     v.db.Count(ddb.ListLocations),
		Words:         len(v.db.Vocabulary()),
		TotalFindings: len(v.findings),
		Errors:        v.Errors(),
		Categories:    make(map[string]CategorySum),
		Findings:      v.findings,
	}
	if r.Findings == nil {
		r.Findings = []Finding{}
	}

	for _, f := range v.findings {
		key := f.Category.String()
		cs, ok := r.Categories[key]
		if !ok {
			cs.Label = categoryLabels[f.Category]
		}
		cs.Total++
		switch f.Severity {
		case SevError:
			cs.Errors++
		case SevWarning:
			cs.Warnings++
		}
		r.Categories[key] = cs
	}
	return r
}

// WriteJSON writes the report as JSON to the given writer.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
