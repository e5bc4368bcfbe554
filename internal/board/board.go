// Package board reads and writes markdown kanban boards.
//
// A board file looks like this:
//
//	---
//	kanban-plugin: board
//	---
//
//	## Today #gather_day=0
//
//	- [ ] Call the bank @Karl @2025-03-10
//	  account number is in the drawer
//
//	## Inbox #ungathered
//
//	- [x] Fix the roof
//
// Frontmatter is optional YAML. "## " lines start columns; "- " lines start
// cards (with an optional task checkbox); indented lines below a card are
// its description. Anything from a "***" line or a "%% kanban:settings"
// block onwards is kept verbatim as the footer.
//
// Columns and cards get positional IDs (c1, c1.1, ...) that are only
// meaningful for the board value they came from.
package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/kb/internal/sorter"
)

// TextMode selects which part of a card carries tags.
type TextMode string

// Text modes.
const (
	TextTitle TextMode = "title"
	TextFull  TextMode = "full"
)

// FrontmatterCardText is the frontmatter key that overrides the text mode.
const FrontmatterCardText = "card-text"

var (
	ErrInvalidTextMode = errors.New("invalid card text mode (valid: title, full)")
	ErrColumnNotFound  = errors.New("column not found")
)

// ParseTextMode validates a text mode name.
func ParseTextMode(s string) (TextMode, error) {
	switch TextMode(s) {
	case TextTitle, TextFull:
		return TextMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTextMode, s)
	}
}

// Board is a parsed board file.
type Board struct {
	// Frontmatter is the decoded YAML block, nil when the file has none.
	Frontmatter map[string]any
	// RawFrontmatter holds the lines between the --- markers, verbatim.
	RawFrontmatter []string
	HasFrontmatter bool
	// Preamble is text before the first column.
	Preamble []string
	Columns  []Column
	// Footer is everything from "***" or "%% kanban:settings" on.
	Footer []string
	// CRLF is set when the file's first line ends in "\r\n".
	CRLF bool
}

// Column is one "## " section.
type Column struct {
	ID     string
	Header string
	// Note is free text between the header and the first card.
	Note  []string
	Cards []Card
}

// Card is one list item.
type Card struct {
	ID       string
	Title    string
	Checkbox bool
	Done     bool
	// Description lines, de-indented.
	Description []string
}

// Text returns the card text that tags are read from.
func (c Card) Text(mode TextMode) string {
	if mode == TextTitle || len(c.Description) == 0 {
		return c.Title
	}

	return c.Title + "\n" + strings.Join(c.Description, "\n")
}

// TextMode returns the frontmatter override for the card text mode, if any.
func (b *Board) TextMode() (TextMode, bool, error) {
	v, ok := b.Frontmatter[FrontmatterCardText]
	if !ok {
		return "", false, nil
	}

	s, isString := v.(string)
	if !isString {
		return "", false, fmt.Errorf("frontmatter %s: %w: %v", FrontmatterCardText, ErrInvalidTextMode, v)
	}

	mode, err := ParseTextMode(s)
	if err != nil {
		return "", false, fmt.Errorf("frontmatter %s: %w", FrontmatterCardText, err)
	}

	return mode, true, nil
}

// Snapshot returns the read-only view the sort engine works on.
func (b *Board) Snapshot(mode TextMode) sorter.Snapshot {
	snap := sorter.Snapshot{Columns: make([]sorter.Column, len(b.Columns))}

	for i, col := range b.Columns {
		sc := sorter.Column{ID: col.ID, Header: col.Header}

		for _, c := range col.Cards {
			sc.Cards = append(sc.Cards, sorter.Card{ID: c.ID, Text: c.Text(mode)})
		}

		snap.Columns[i] = sc
	}

	return snap
}

// Column returns the column with the given ID.
func (b *Board) Column(id string) (Column, bool) {
	for _, col := range b.Columns {
		if col.ID == id {
			return col, true
		}
	}

	return Column{}, false
}

// CardsByID indexes every card by its ID.
func (b *Board) CardsByID() map[string]Card {
	cards := make(map[string]Card)

	for _, col := range b.Columns {
		for _, c := range col.Cards {
			cards[c.ID] = c
		}
	}

	return cards
}

// Apply returns a new board with every moved card taken out of its column
// and appended to its target, in board traversal order. IDs are
// reassigned. The receiver is not modified.
func (b *Board) Apply(plan sorter.Plan) (*Board, int, error) {
	out := &Board{
		Frontmatter:    b.Frontmatter,
		RawFrontmatter: b.RawFrontmatter,
		HasFrontmatter: b.HasFrontmatter,
		Preamble:       b.Preamble,
		Columns:        make([]Column, len(b.Columns)),
		Footer:         b.Footer,
		CRLF:           b.CRLF,
	}

	index := make(map[string]int, len(b.Columns))

	for i, col := range b.Columns {
		index[col.ID] = i
		out.Columns[i] = Column{ID: col.ID, Header: col.Header, Note: col.Note}
	}

	placements := make(map[string]sorter.Placement, len(plan.Placements))
	for _, pl := range plan.Placements {
		placements[pl.CardID] = pl
	}

	moved := 0

	for _, col := range b.Columns {
		for _, c := range col.Cards {
			dst := index[col.ID]

			if pl, ok := placements[c.ID]; ok && pl.Moved() {
				i, known := index[pl.Target]
				if !known {
					return nil, 0, fmt.Errorf("%w: %s (card %s)", ErrColumnNotFound, pl.Target, c.ID)
				}

				dst = i
				moved++
			}

			out.Columns[dst].Cards = append(out.Columns[dst].Cards, c)
		}
	}

	out.assignIDs()

	return out, moved, nil
}

func (b *Board) assignIDs() {
	for i := range b.Columns {
		colID := "c" + strconv.Itoa(i+1)
		b.Columns[i].ID = colID

		for j := range b.Columns[i].Cards {
			b.Columns[i].Cards[j].ID = colID + "." + strconv.Itoa(j+1)
		}
	}
}
