package gather

import (
	"github.com/calvinalkan/kb/internal/calendar"
	"github.com/calvinalkan/kb/internal/card"
)

// Matches reports whether any clause matches. An empty set never matches.
func (rs RuleSet) Matches(f card.Facts, today calendar.Date) bool {
	for _, c := range rs.Clauses {
		if c.Matches(f, today) {
			return true
		}
	}

	return false
}

// Matches reports whether every atom matches.
func (c Clause) Matches(f card.Facts, today calendar.Date) bool {
	for _, a := range c {
		if !a.Matches(f, today) {
			return false
		}
	}

	return len(c) > 0
}

// Matches evaluates one atom. Date atoms on a card without a due date are
// false even when negated.
func (a Atom) Matches(f card.Facts, today calendar.Date) bool {
	if a.Field == FieldPerson {
		return f.HasPerson(a.Text) != a.Negated
	}

	if f.Due == nil {
		return false
	}

	return a.compare(derive(a.Field, *f.Due, today)) != a.Negated
}

func (a Atom) compare(got int) bool {
	switch a.Op {
	case OpEq:
		return got == a.Num
	case OpNotEq:
		return got != a.Num
	case OpLt:
		return got < a.Num
	case OpGt:
		return got > a.Num
	default:
		return false
	}
}

func derive(field Field, due, today calendar.Date) int {
	switch field {
	case FieldDayOffset:
		return due.Offset(today)
	case FieldWeekday, FieldWeekdayNum:
		return due.WeekdayNum()
	case FieldMonth, FieldMonthNum:
		return due.Month
	default:
		return 0
	}
}
