package gather

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/kb/internal/calendar"
)

// Tag prefixes and markers recognized in column headers.
const (
	GatherPrefix  = "#gather_"
	UngatheredTag = "#ungathered"
	UnsortedTag   = "#unsorted"
)

// Reasons a clause is dropped. Diagnostics carry the message; callers that
// parse single atoms get them wrapped.
var (
	ErrEmptyExpression = errors.New("empty expression")
	ErrEmptyClause     = errors.New("empty clause")
	ErrEmptyAtom       = errors.New("empty atom")
	ErrUnknownField    = errors.New("unknown field")
	ErrMissingValue    = errors.New("missing value")
	ErrNotANumber      = errors.New("value is not an integer")
	ErrBadWeekday      = errors.New("value is not a weekday (mon..sun)")
	ErrBadMonth        = errors.New("value is not a month (jan..dec)")
	ErrOrderedOp       = errors.New("< and > need a numeric field (dayoffset, weekdaynum, monthnum)")
)

var fieldKeywords = map[string]Field{
	"dayoffset":  FieldDayOffset,
	"day":        FieldDayOffset,
	"weekday":    FieldWeekday,
	"weekdaynum": FieldWeekdayNum,
	"month":      FieldMonth,
	"monthnum":   FieldMonthNum,
}

// ParseHeader compiles every gather tag in a column header. Clauses from
// all #gather_ tags are appended in header order.
func ParseHeader(header string) (RuleSet, []Diagnostic) {
	var (
		rs    RuleSet
		diags []Diagnostic
	)

	for _, token := range strings.Fields(header) {
		switch {
		case token == UngatheredTag:
			rs.Ungathered = true
		case token == UnsortedTag:
			rs.Unsorted = true
		case strings.HasPrefix(token, GatherPrefix):
			clauses, tagDiags := ParseExpression(token[len(GatherPrefix):])
			for i := range tagDiags {
				tagDiags[i].Tag = token
			}

			rs.Clauses = append(rs.Clauses, clauses...)
			diags = append(diags, tagDiags...)
		}
	}

	return rs, diags
}

// ParseExpression compiles the text after "#gather_". Diagnostics are
// returned without Tag set.
func ParseExpression(expr string) ([]Clause, []Diagnostic) {
	if expr == "" {
		return nil, []Diagnostic{{Reason: ErrEmptyExpression.Error()}}
	}

	var (
		clauses []Clause
		diags   []Diagnostic
	)

	for _, clauseText := range strings.Split(expr, "|") {
		clause, err := ParseClause(clauseText)
		if err != nil {
			diags = append(diags, Diagnostic{Clause: clauseText, Reason: err.Error()})

			continue
		}

		clauses = append(clauses, clause)
	}

	return clauses, diags
}

// ParseClause compiles one "&"-separated clause.
func ParseClause(text string) (Clause, error) {
	if text == "" {
		return nil, ErrEmptyClause
	}

	parts := strings.Split(text, "&")
	clause := make(Clause, 0, len(parts))

	for _, part := range parts {
		atom, err := ParseAtom(part)
		if err != nil {
			return nil, err
		}

		clause = append(clause, atom)
	}

	return clause, nil
}

// ParseAtom compiles a single comparison or person name.
func ParseAtom(text string) (Atom, error) {
	var atom Atom

	if rest, ok := strings.CutPrefix(text, "!"); ok {
		atom.Negated = true
		text = rest
	}

	if text == "" {
		return Atom{}, ErrEmptyAtom
	}

	pos, op, opLen := findOp(text)
	if pos < 0 {
		atom.Field = FieldPerson
		atom.Op = OpEq
		atom.Text = text

		return atom, nil
	}

	name := text[:pos]

	field, ok := fieldKeywords[strings.ToLower(name)]
	if !ok {
		return Atom{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	value := text[pos+opLen:]
	if value == "" {
		return Atom{}, fmt.Errorf("%w after %s%s", ErrMissingValue, name, op)
	}

	atom.Field = field
	atom.Op = op

	if field.Numeric() {
		n, err := strconv.Atoi(value)
		if err != nil {
			return Atom{}, fmt.Errorf("%w: %q", ErrNotANumber, value)
		}

		atom.Num = n

		return atom, nil
	}

	if op == OpLt || op == OpGt {
		return Atom{}, fmt.Errorf("%w: %s%s", ErrOrderedOp, name, op)
	}

	var n int

	if field == FieldWeekday {
		n, ok = calendar.WeekdayNumber(value)
		if !ok {
			return Atom{}, fmt.Errorf("%w: %q", ErrBadWeekday, value)
		}
	} else {
		n, ok = calendar.MonthNumber(value)
		if !ok {
			return Atom{}, fmt.Errorf("%w: %q", ErrBadMonth, value)
		}
	}

	atom.Num = n

	return atom, nil
}

// findOp locates the first operator. "!" only counts as part of "!=".
func findOp(text string) (int, Op, int) {
	for i := range len(text) {
		switch text[i] {
		case '=':
			return i, OpEq, 1
		case '<':
			return i, OpLt, 1
		case '>':
			return i, OpGt, 1
		case '!':
			if i+1 < len(text) && text[i+1] == '=' {
				return i, OpNotEq, 2
			}
		}
	}

	return -1, OpEq, 0
}
