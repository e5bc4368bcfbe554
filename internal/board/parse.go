package board

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelimiter = "---"
	columnPrefix         = "## "
	cardPrefix           = "- "
	footerRule           = "***"
	footerSettings       = "%% kanban:settings"
)

var (
	ErrFrontmatterUnterminated = errors.New("frontmatter not terminated (missing closing ---)")
	ErrFrontmatterInvalid      = errors.New("invalid frontmatter")
)

// Parse reads a board file.
func Parse(data []byte) (*Board, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read board: %w", err)
	}

	b := &Board{}

	if i := bytes.IndexByte(data, '\n'); i > 0 && data[i-1] == '\r' {
		b.CRLF = true
	}

	rest, err := b.parseFrontmatter(lines)
	if err != nil {
		return nil, err
	}

	b.parseBody(rest)
	b.assignIDs()

	return b, nil
}

func (b *Board) parseFrontmatter(lines []string) ([]string, error) {
	if len(lines) == 0 || lines[0] != frontmatterDelimiter {
		return lines, nil
	}

	for i := 1; i < len(lines); i++ {
		if lines[i] != frontmatterDelimiter {
			continue
		}

		raw := lines[1:i]

		var fm map[string]any

		if err := yaml.Unmarshal([]byte(strings.Join(raw, "\n")), &fm); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFrontmatterInvalid, err)
		}

		b.HasFrontmatter = true
		b.RawFrontmatter = raw
		b.Frontmatter = fm

		return lines[i+1:], nil
	}

	return nil, ErrFrontmatterUnterminated
}

func (b *Board) parseBody(lines []string) {
	var (
		col  *Column
		card *Card
	)

	for i, line := range lines {
		if line == footerRule || strings.HasPrefix(line, footerSettings) {
			b.Footer = lines[i:]

			break
		}

		if header, ok := strings.CutPrefix(line, columnPrefix); ok {
			b.Columns = append(b.Columns, Column{Header: strings.TrimSpace(header)})
			col = &b.Columns[len(b.Columns)-1]
			card = nil

			continue
		}

		if col == nil {
			b.Preamble = append(b.Preamble, line)

			continue
		}

		if strings.TrimSpace(line) == "" {
			if card != nil {
				card.Description = append(card.Description, "")
			} else {
				col.Note = append(col.Note, "")
			}

			continue
		}

		if item, ok := strings.CutPrefix(line, cardPrefix); ok {
			col.Cards = append(col.Cards, parseCardLine(item))
			card = &col.Cards[len(col.Cards)-1]

			continue
		}

		if card != nil {
			if desc, ok := deindent(line); ok {
				card.Description = append(card.Description, desc)

				continue
			}
		}

		if card == nil {
			col.Note = append(col.Note, line)

			continue
		}

		// Unindented text after a card belongs to it.
		card.Description = append(card.Description, line)
	}

	b.Preamble = trimBlank(b.Preamble)

	for i := range b.Columns {
		col := &b.Columns[i]
		col.Note = trimBlank(col.Note)

		for j := range col.Cards {
			col.Cards[j].Description = trimTrailingBlank(col.Cards[j].Description)
		}
	}
}

func parseCardLine(item string) Card {
	for _, box := range []struct {
		prefix string
		done   bool
	}{
		{"[ ] ", false},
		{"[x] ", true},
		{"[X] ", true},
	} {
		if title, ok := strings.CutPrefix(item, box.prefix); ok {
			return Card{Title: title, Checkbox: true, Done: box.done}
		}
	}

	// "- [ ]" with nothing after it
	switch item {
	case "[ ]":
		return Card{Checkbox: true}
	case "[x]", "[X]":
		return Card{Checkbox: true, Done: true}
	}

	return Card{Title: item}
}

func deindent(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, "\t"); ok {
		return rest, true
	}

	if rest, ok := strings.CutPrefix(line, "  "); ok {
		return rest, true
	}

	return "", false
}

// trimTrailingBlank drops blank lines between a card and whatever follows it.
func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	if len(lines) == 0 {
		return nil
	}

	return lines
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	if len(lines) == 0 {
		return nil
	}

	return lines
}
