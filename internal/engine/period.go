package engine

import (
	"fmt"
	"regexp"
	"strconv"
)

// PeriodKind distinguishes the two reporting cadences an entity can file on.
type PeriodKind string

const (
	Quarterly PeriodKind = "quarterly"
	Annual    PeriodKind = "annual"
)

// Period is the orderable end marker of a reporting period.
// Quarter is 1-4 for quarterly periods and 0 for annual periods.
type Period struct {
	Year    int
	Quarter int
}

var quarterPattern = regexp.MustCompile(`^(\d{4})Q([1-4])$`)

// ParsePeriod parses a period label: "2024Q1" for quarters, "2024" for years.
func ParsePeriod(label string) (Period, error) {
	if m := quarterPattern.FindStringSubmatch(label); m != nil {
		year, _ := strconv.Atoi(m[1])
		quarter, _ := strconv.Atoi(m[2])
		return Period{Year: year, Quarter: quarter}, nil
	}
	if year, err := strconv.Atoi(label); err == nil && year >= 1900 && year <= 9999 {
		return Period{Year: year}, nil
	}
	return Period{}, fmt.Errorf("invalid period label: %q", label)
}

// String formats the period label: "2024Q1" or "2024".
func (p Period) String() string {
	if p.Quarter == 0 {
		return strconv.Itoa(p.Year)
	}
	return fmt.Sprintf("%dQ%d", p.Year, p.Quarter)
}

// Kind reports which cadence the marker belongs to.
func (p Period) Kind() PeriodKind {
	if p.Quarter == 0 {
		return Annual
	}
	return Quarterly
}

// Index maps the marker onto a consecutive integer scale so that lag
// arithmetic is a subtraction: adjacent quarters (and adjacent years)
// differ by exactly one.
func (p Period) Index() int {
	if p.Quarter == 0 {
		return p.Year
	}
	return p.Year*4 + p.Quarter - 1
}

// AddQuarters shifts a quarterly marker by n quarters (n may be negative).
func (p Period) AddQuarters(n int) Period {
	idx := p.Index() + n
	year := idx / 4
	quarter := idx%4 + 1
	return Period{Year: year, Quarter: quarter}
}

// AddYears shifts the marker by n years, preserving the quarter.
func (p Period) AddYears(n int) Period {
	return Period{Year: p.Year + n, Quarter: p.Quarter}
}

// Before reports whether p ends before q. Only meaningful for markers of
// the same kind.
func (p Period) Before(q Period) bool {
	return p.Index() < q.Index()
}
