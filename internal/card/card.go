// Package card extracts the typed facts that gather rules match against.
//
// Card text carries attributes as @-tags:
//
//	Call the bank @Karl @2025-03-11 @done=2025-03-01 @sticky
//
// A tag starts at an "@" at the beginning of the text or right after
// whitespace and runs to the next whitespace. Its shape decides what it is:
// a bare date is the due date, "type=date" or "type:date" is a typed date,
// "sticky" pins the card, and everything else names a person.
package card

import (
	"strings"
	"unicode"

	"github.com/calvinalkan/kb/internal/calendar"
)

// DueType is the date type that bare date tags are filed under.
const DueType = "due"

const stickyTag = "sticky"

// Facts are the attributes extracted from one card.
type Facts struct {
	// Due is the due date, nil when the card has none.
	Due *calendar.Date
	// Dates holds every other typed date (done, modified, start, end, ...).
	Dates map[string]calendar.Date
	// Persons in order of first appearance, de-duplicated ignoring case.
	Persons []string
	// Sticky cards are never moved by a sort pass.
	Sticky bool
}

// HasPerson reports whether name was tagged on the card, ignoring case.
func (f Facts) HasPerson(name string) bool {
	for _, p := range f.Persons {
		if strings.EqualFold(p, name) {
			return true
		}
	}

	return false
}

// Classifiable reports whether the card carries anything a rule can look at.
func (f Facts) Classifiable() bool {
	return f.Due != nil || len(f.Persons) > 0
}

// Extract scans text for @-tags. It never fails: tags that look like
// broken dates are treated as person names.
func Extract(text string) Facts {
	var facts Facts

	for _, tag := range Tags(text) {
		facts.add(tag)
	}

	return facts
}

// Tags returns the raw tag bodies (without "@") in order of appearance.
//
// A tag starts at an "@" at the start of the text, after whitespace or
// after one of "([{,;" and runs to the next whitespace. When it opened
// after a bracket, the matching closing bracket at its end is dropped, so
// "(@Reto)" is the tag "Reto". An "@" inside a word ("bob@karl.ch") is not
// a tag.
func Tags(text string) []string {
	var tags []string

	prev := ' '
	skip := 0

	for i, r := range text {
		before := prev
		prev = r

		if i < skip || r != '@' || !opensTag(before) {
			continue
		}

		rest := text[i+1:]

		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			end = len(rest)
		}

		skip = i + 1 + end

		tag := rest[:end]
		if closer, ok := tagClosers[before]; ok {
			tag = strings.TrimSuffix(tag, closer)
		}

		if tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}

var tagClosers = map[rune]string{'(': ")", '[': "]", '{': "}"}

func opensTag(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune("([{,;", r)
}

func (f *Facts) add(tag string) {
	if strings.EqualFold(tag, stickyTag) {
		f.Sticky = true

		return
	}

	if typ, date, ok := ParseDateTag(tag); ok {
		f.addDate(typ, date)

		return
	}

	if !f.HasPerson(tag) {
		f.Persons = append(f.Persons, tag)
	}
}

// First occurrence of each type wins.
func (f *Facts) addDate(typ string, date calendar.Date) {
	if typ == DueType {
		if f.Due == nil {
			f.Due = &date
		}

		return
	}

	if _, seen := f.Dates[typ]; seen {
		return
	}

	if f.Dates == nil {
		f.Dates = make(map[string]calendar.Date)
	}

	f.Dates[typ] = date
}

// ParseDateTag classifies a tag body as a date tag. It returns the
// lowercased date type ("due" for bare dates) and the date.
func ParseDateTag(tag string) (string, calendar.Date, bool) {
	if d, ok := calendar.Parse(tag); ok {
		return DueType, d, true
	}

	sep := strings.IndexAny(tag, "=:")
	if sep <= 0 {
		return "", calendar.Date{}, false
	}

	typ := tag[:sep]
	if !isIdentifier(typ) {
		return "", calendar.Date{}, false
	}

	d, ok := calendar.Parse(tag[sep+1:])
	if !ok {
		return "", calendar.Date{}, false
	}

	return strings.ToLower(typ), d, true
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '_' || r == '-'):
		default:
			return false
		}
	}

	return s != ""
}
