// Package gather compiles #gather_ tags from column headers into rule sets
// and evaluates them against card facts.
//
// A column header like
//
//	Today #gather_dayoffset=0|reto&weekday=mon #gather_!karl&day<0
//
// compiles into one [RuleSet] in disjunctive normal form: an OR of clauses,
// each clause an AND of atoms. Every #gather_ tag contributes its clauses to
// the same set, so separate tags are OR'd together. There is no grouping;
// the grammar is flat:
//
//	expr   = clause { "|" clause }
//	clause = atom { "&" atom }
//	atom   = [ "!" ] ( field op value | person )
//	field  = "dayoffset" | "day" | "weekday" | "weekdaynum" | "month" | "monthnum"
//	op     = "=" | "!=" | "<" | ">"
//
// "#ungathered" and "#unsorted" mark a column as the fallback bucket for
// cards that match no rule.
//
// Parsing never fails. A clause that cannot be compiled is dropped and
// reported as a [Diagnostic]; the rest of the header still applies.
package gather

import (
	"strconv"
	"strings"

	"github.com/calvinalkan/kb/internal/calendar"
)

// Field is the card attribute an atom compares.
type Field uint8

// Fields. All but FieldPerson are derived from the card's due date.
const (
	FieldPerson Field = iota
	FieldDayOffset
	FieldWeekday
	FieldWeekdayNum
	FieldMonth
	FieldMonthNum
)

func (f Field) String() string {
	switch f {
	case FieldPerson:
		return "person"
	case FieldDayOffset:
		return "dayoffset"
	case FieldWeekday:
		return "weekday"
	case FieldWeekdayNum:
		return "weekdaynum"
	case FieldMonth:
		return "month"
	case FieldMonthNum:
		return "monthnum"
	default:
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
}

// Numeric reports whether the field supports < and >.
func (f Field) Numeric() bool {
	return f == FieldDayOffset || f == FieldWeekdayNum || f == FieldMonthNum
}

// Op is a comparison operator.
type Op uint8

// Operators.
const (
	OpEq Op = iota
	OpNotEq
	OpLt
	OpGt
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNotEq:
		return "!="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	default:
		return "op(" + strconv.Itoa(int(o)) + ")"
	}
}

// Atom is one comparison. Weekday and month values are stored as their
// numbers in Num; person atoms use Text.
type Atom struct {
	Field   Field
	Op      Op
	Num     int
	Text    string
	Negated bool
}

func (a Atom) String() string {
	var b strings.Builder

	if a.Negated {
		b.WriteByte('!')
	}

	switch a.Field {
	case FieldPerson:
		b.WriteString(a.Text)

		return b.String()
	case FieldWeekday:
		b.WriteString(a.Field.String() + a.Op.String() + calendar.WeekdayName(a.Num))
	case FieldMonth:
		b.WriteString(a.Field.String() + a.Op.String() + calendar.MonthName(a.Num))
	default:
		b.WriteString(a.Field.String() + a.Op.String() + strconv.Itoa(a.Num))
	}

	return b.String()
}

// Clause is a conjunction of atoms.
type Clause []Atom

func (c Clause) String() string {
	parts := make([]string, len(c))
	for i, a := range c {
		parts[i] = a.String()
	}

	return strings.Join(parts, "&")
}

// RuleSet is everything one column header asks for.
type RuleSet struct {
	// Clauses are OR'd. An empty set never matches.
	Clauses []Clause
	// Ungathered is set by #ungathered.
	Ungathered bool
	// Unsorted is set by #unsorted.
	Unsorted bool
}

// IsFallback reports whether the column collects unmatched cards.
// #ungathered and #unsorted are synonyms.
func (rs RuleSet) IsFallback() bool {
	return rs.Ungathered || rs.Unsorted
}

// Empty reports whether the set has no clauses.
func (rs RuleSet) Empty() bool {
	return len(rs.Clauses) == 0
}

// String renders the canonical form, clauses joined by " | ".
func (rs RuleSet) String() string {
	parts := make([]string, len(rs.Clauses))
	for i, c := range rs.Clauses {
		parts[i] = c.String()
	}

	return strings.Join(parts, " | ")
}

// Diagnostic reports a clause that was dropped.
type Diagnostic struct {
	// Tag is the full tag as written, e.g. "#gather_foo=1|karl".
	Tag string
	// Clause is the offending clause text ("" when the whole tag is unusable).
	Clause string
	// Reason says what was wrong.
	Reason string
}

func (d Diagnostic) String() string {
	if d.Clause == "" {
		return d.Tag + ": " + d.Reason
	}

	return d.Tag + ": clause " + strconv.Quote(d.Clause) + ": " + d.Reason
}
