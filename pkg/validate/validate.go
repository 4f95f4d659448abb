// Package validate checks a DDB image before it is played: the header
// offsets, every message text, the vocabulary and the object tables.
// Findings are collected per category and can be written as a JSON report.
package validate

import (
	"fmt"
	"sort"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// Category classifies the type of finding.
type Category int

const (
	CatHeader     Category = iota // Offsets and counts of the header
	CatText                       // Message texts that do not decode
	CatVocabulary                 // Word table anomalies
	CatObjects                    // Object table references
)

func (c Category) String() string {
	switch c {
	case CatHeader:
		return "header"
	case CatText:
		return "text"
	case CatVocabulary:
		return "vocabulary"
	case CatObjects:
		return "objects"
	default:
		return "unknown"
	}
}

// Severity indicates how serious a finding is.
type Severity int

const (
	SevError   Severity = iota // The interpreter will fail on it
	SevWarning                 // Should be reviewed
	SevInfo                    // Informational only
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	case SevInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name in reports.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalText encodes the category by name in reports.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Finding represents a single issue detected in the database.
type Finding struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	List        string   `json:"list,omitempty"` // table the entry belongs to
	Entry       int      `json:"entry"`
	Description string   `json:"description"`
}

// Checker is the interface that each validation check implements.
type Checker interface {
	Name() string
	Check(db *ddb.Database) []Finding
}

// Validator orchestrates running all checkers against a database.
type Validator struct {
	checkers []Checker
	db       *ddb.Database
	findings []Finding
}

// New creates a Validator with all built-in checkers registered.
func New(db *ddb.Database) *Validator {
	return &Validator{
		db: db,
		checkers: []Checker{
			&HeaderChecker{},
			&TextChecker{},
			&VocabularyChecker{},
			&IntegrityChecker{},
		},
	}
}

// Run executes all checkers and returns findings sorted by category,
// table and entry.
func (v *Validator) Run() []Finding {
	v.findings = nil
	for _, c := range v.checkers {
		v.findings = append(v.findings, c.Check(v.db)...)
	}
	sort.SliceStable(v.findings, func(i, j int) bool {
		a, b := v.findings[i], v.findings[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.List != b.List {
			return a.List < b.List
		}
		return a.Entry < b.Entry
	})
	return v.findings
}

// Findings returns the current findings (after Run has been called).
func (v *Validator) Findings() []Finding {
	return v.findings
}

// Summary returns counts of findings per category.
func (v *Validator) Summary() map[Category]int {
	m := make(map[Category]int)
	for _, f := range v.findings {
		m[f.Category]++
	}
	return m
}

// Errors returns the number of error findings.
func (v *Validator) Errors() int {
	n := 0
	for _, f := range v.findings {
		if f.Severity == SevError {
			n++
		}
	}
	return n
}

// collector numbers the findings of one checker.
type collector struct {
	prefix   string
	seq      int
	findings []Finding
}

func (c *collector) add(cat Category, sev Severity, list string, entry int, format string, args ...any) {
	c.findings = append(c.findings, Finding{
		ID:          fmt.Sprintf("%s-%d", c.prefix, c.seq),
		Category:    cat,
		Severity:    sev,
		List:        list,
		Entry:       entry,
		Description: fmt.Sprintf(format, args...),
	})
	c.seq++
}
