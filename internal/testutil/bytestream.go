package testutil

import (
	"strconv"
	"strings"
	"time"

	"github.com/calvinalkan/kb/internal/calendar"
	"github.com/calvinalkan/kb/internal/sorter"
)

// ByteStream reads bytes sequentially from fuzz input.
//
// When the stream is exhausted every read returns zero, so the same input
// always produces the same board.
type ByteStream struct {
	bytes []byte
	pos   int
}

// NewByteStream creates a stream over the given bytes.
func NewByteStream(b []byte) *ByteStream {
	return &ByteStream{bytes: b}
}

// HasMore reports whether unread bytes remain.
func (s *ByteStream) HasMore() bool {
	return s.pos < len(s.bytes)
}

// NextByte returns the next byte, or 0 if exhausted.
func (s *ByteStream) NextByte() byte {
	if s.pos >= len(s.bytes) {
		return 0
	}

	v := s.bytes[s.pos]
	s.pos++

	return v
}

// NextInt returns a value in [0, maxVal).
func (s *ByteStream) NextInt(maxVal int) int {
	if maxVal <= 0 {
		return 0
	}

	return int(s.NextByte()) % maxVal
}

// NextBool returns a boolean derived from the next byte.
func (s *ByteStream) NextBool() bool {
	return s.NextByte()&1 == 1
}

// Small vocabularies keep generated rules and cards likely to interact.
var (
	genPersons   = []string{"karl", "Karl", "bruno", "reto", "Anna"}
	genWeekdays  = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun", "Mon"}
	genMonths    = []string{"jan", "mar", "apr", "dec"}
	genOps       = []string{"=", "!=", "<", ">"}
	genNumFields = []string{"dayoffset", "day", "weekdaynum", "monthnum"}
	genDateTypes = []string{"due", "done", "start", "Due"}
)

// BoardGen derives random snapshots from fuzz bytes.
type BoardGen struct {
	s     *ByteStream
	today calendar.Date
}

// NewBoardGen creates a generator whose dates cluster around today.
func NewBoardGen(data []byte, today calendar.Date) *BoardGen {
	return &BoardGen{s: NewByteStream(data), today: today}
}

// Snapshot generates 1-6 columns with 0-5 cards each.
func (g *BoardGen) Snapshot() sorter.Snapshot {
	b := NewSnapshot()

	cols := 1 + g.s.NextInt(6)
	for range cols {
		cards := make([]string, g.s.NextInt(6))
		for i := range cards {
			cards[i] = g.CardText()
		}

		b.Column(g.Header(), cards...)
	}

	return b.Build()
}

// Header generates a column title with 0-2 gather tags and maybe a fallback marker.
func (g *BoardGen) Header() string {
	parts := []string{"Col"}

	for range g.s.NextInt(3) {
		clauses := make([]string, 1+g.s.NextInt(3))
		for i := range clauses {
			atoms := make([]string, 1+g.s.NextInt(2))
			for j := range atoms {
				atoms[j] = g.atom()
			}

			clauses[i] = strings.Join(atoms, "&")
		}

		parts = append(parts, "#gather_"+strings.Join(clauses, "|"))
	}

	switch g.s.NextInt(8) {
	case 0:
		parts = append(parts, "#ungathered")
	case 1:
		parts = append(parts, "#unsorted")
	}

	return strings.Join(parts, " ")
}

func (g *BoardGen) atom() string {
	neg := ""
	if g.s.NextInt(4) == 0 {
		neg = "!"
	}

	switch g.s.NextInt(5) {
	case 0, 1:
		return neg + pick(g.s, genPersons)
	case 2:
		return neg + "weekday" + pick(g.s, []string{"=", "!="}) + pick(g.s, genWeekdays)
	case 3:
		return neg + "month" + pick(g.s, []string{"=", "!="}) + pick(g.s, genMonths)
	default:
		return neg + pick(g.s, genNumFields) + pick(g.s, genOps) + strconv.Itoa(g.s.NextInt(15)-7)
	}
}

// CardText generates a title with 0-4 tags.
func (g *BoardGen) CardText() string {
	parts := []string{"Task"}

	for range g.s.NextInt(5) {
		switch g.s.NextInt(6) {
		case 0, 1:
			parts = append(parts, "@"+pick(g.s, genPersons))
		case 2:
			parts = append(parts, "@"+g.date().String())
		case 3:
			parts = append(parts, "@"+pick(g.s, genDateTypes)+"="+g.date().String())
		case 4:
			parts = append(parts, "@sticky")
		default:
			parts = append(parts, "note")
		}
	}

	return strings.Join(parts, " ")
}

func (g *BoardGen) date() calendar.Date {
	offset := g.s.NextInt(61) - 30

	return FromDayNumber(g.today.DayNumber() + offset)
}

// FromDayNumber converts days since 1970-01-01 back to a date.
func FromDayNumber(n int) calendar.Date {
	return calendar.FromTime(time.Unix(int64(n)*86400, 0).UTC())
}

func pick(s *ByteStream, options []string) string {
	return options[s.NextInt(len(options))]
}
