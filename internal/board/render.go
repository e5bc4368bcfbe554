package board

import "strings"

// Render writes the board in canonical form: one blank line after the
// frontmatter and the preamble, after every column header and note, and
// after each column's cards. Blank lines inside a card description or a
// note are kept. Rendering a parsed canonical file reproduces it exactly,
// including CRLF line endings.
func (b *Board) Render() []byte {
	var sb strings.Builder

	if b.HasFrontmatter {
		sb.WriteString(frontmatterDelimiter + "\n")

		for _, line := range b.RawFrontmatter {
			sb.WriteString(line + "\n")
		}

		sb.WriteString(frontmatterDelimiter + "\n\n")
	}

	if len(b.Preamble) > 0 {
		for _, line := range b.Preamble {
			sb.WriteString(line + "\n")
		}

		sb.WriteString("\n")
	}

	for _, col := range b.Columns {
		sb.WriteString(columnPrefix + col.Header + "\n\n")

		if len(col.Note) > 0 {
			for _, line := range col.Note {
				sb.WriteString(line + "\n")
			}

			sb.WriteString("\n")
		}

		for _, c := range col.Cards {
			renderCard(&sb, c)
		}

		if len(col.Cards) > 0 {
			sb.WriteString("\n")
		}
	}

	for _, line := range b.Footer {
		sb.WriteString(line + "\n")
	}

	if b.CRLF {
		return []byte(strings.ReplaceAll(sb.String(), "\n", "\r\n"))
	}

	return []byte(sb.String())
}

func renderCard(sb *strings.Builder, c Card) {
	sb.WriteString(cardPrefix)

	if c.Checkbox {
		if c.Done {
			sb.WriteString("[x] ")
		} else {
			sb.WriteString("[ ] ")
		}
	}

	sb.WriteString(c.Title + "\n")

	for _, line := range c.Description {
		if line == "" {
			sb.WriteString("\n")

			continue
		}

		sb.WriteString("  " + line + "\n")
	}
}
