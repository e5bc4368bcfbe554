// Package sorter runs one gather pass over a board snapshot.
//
// [Sort] is a pure function of the snapshot and "today": it extracts facts
// from every card, compiles every column header, and routes each card to
// the first column (in board order) whose rules match. Cards that match
// nothing go to the fallback column if the board has one. Nothing is
// mutated; the caller decides whether to apply the returned [Plan].
package sorter

import (
	"github.com/calvinalkan/kb/internal/calendar"
	"github.com/calvinalkan/kb/internal/card"
	"github.com/calvinalkan/kb/internal/gather"
)

// Snapshot is the read-only view of a board that a sort pass needs.
type Snapshot struct {
	Columns []Column
}

// Column is one board column in board order.
type Column struct {
	ID     string
	Header string
	Cards  []Card
}

// Card is one card. Text is whatever the host decides carries the tags.
type Card struct {
	ID   string
	Text string
}

// Reason explains a placement.
type Reason string

// Placement reasons.
const (
	ReasonSticky         Reason = "sticky"
	ReasonUnclassifiable Reason = "unclassifiable"
	ReasonMatched        Reason = "matched"
	ReasonFallback       Reason = "fallback"
	ReasonNoMatch        Reason = "no-match"
)

// Placement is the decision for one card.
type Placement struct {
	CardID string
	From   string
	// Target is the destination column. Empty means unchanged.
	Target string
	Reason Reason
}

// Unchanged reports whether the card keeps its place.
func (p Placement) Unchanged() bool {
	return p.Target == ""
}

// Moved reports whether the card ends up in a different column.
func (p Placement) Moved() bool {
	return p.Target != "" && p.Target != p.From
}

// ColumnDiagnostic is a non-fatal problem found in one column header.
type ColumnDiagnostic struct {
	ColumnID string
	gather.Diagnostic
}

// Plan is the result of a sort pass.
type Plan struct {
	// Placements has one entry per card in board traversal order.
	Placements []Placement
	// Fallback is the column receiving unmatched cards, "" if none.
	Fallback string
	// Diagnostics collects dropped clauses and ignored markers.
	Diagnostics []ColumnDiagnostic
}

// Moves returns the placements that change a card's column.
func (p Plan) Moves() []Placement {
	var moves []Placement

	for _, pl := range p.Placements {
		if pl.Moved() {
			moves = append(moves, pl)
		}
	}

	return moves
}

// Lookup returns the placement for cardID.
func (p Plan) Lookup(cardID string) (Placement, bool) {
	for _, pl := range p.Placements {
		if pl.CardID == cardID {
			return pl, true
		}
	}

	return Placement{}, false
}

// Rules is a compiled column.
type Rules struct {
	ColumnID string
	gather.RuleSet
}

// Compile parses every column header in board order. Extra fallback
// columns after the first are reported and ignored.
func Compile(s Snapshot) ([]Rules, string, []ColumnDiagnostic) {
	var (
		rules    = make([]Rules, 0, len(s.Columns))
		fallback string
		diags    []ColumnDiagnostic
	)

	for _, col := range s.Columns {
		rs, colDiags := gather.ParseHeader(col.Header)
		for _, d := range colDiags {
			diags = append(diags, ColumnDiagnostic{ColumnID: col.ID, Diagnostic: d})
		}

		if rs.IsFallback() {
			if fallback == "" {
				fallback = col.ID
			} else {
				diags = append(diags, ColumnDiagnostic{
					ColumnID:   col.ID,
					Diagnostic: gather.Diagnostic{Tag: fallbackTag(rs), Reason: "second fallback column ignored, using " + fallback},
				})
			}
		}

		rules = append(rules, Rules{ColumnID: col.ID, RuleSet: rs})
	}

	return rules, fallback, diags
}

// Sort computes where every card belongs on the given day. Call it with a
// single "today" for the whole pass.
func Sort(s Snapshot, today calendar.Date) Plan {
	rules, fallback, diags := Compile(s)

	plan := Plan{Fallback: fallback, Diagnostics: diags}

	for _, col := range s.Columns {
		for _, c := range col.Cards {
			plan.Placements = append(plan.Placements, place(c, col.ID, rules, fallback, today))
		}
	}

	return plan
}

func place(c Card, from string, rules []Rules, fallback string, today calendar.Date) Placement {
	pl := Placement{CardID: c.ID, From: from}

	facts := card.Extract(c.Text)

	if facts.Sticky {
		pl.Reason = ReasonSticky

		return pl
	}

	if !facts.Classifiable() {
		pl.Reason = ReasonUnclassifiable

		return pl
	}

	for _, r := range rules {
		if r.Matches(facts, today) {
			pl.Target = r.ColumnID
			pl.Reason = ReasonMatched

			return pl
		}
	}

	if fallback != "" {
		pl.Target = fallback
		pl.Reason = ReasonFallback

		return pl
	}

	pl.Reason = ReasonNoMatch

	return pl
}

func fallbackTag(rs gather.RuleSet) string {
	if rs.Ungathered {
		return gather.UngatheredTag
	}

	return gather.UnsortedTag
}
