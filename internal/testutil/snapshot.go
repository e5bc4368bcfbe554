package testutil

import (
	"strconv"

	"github.com/calvinalkan/kb/internal/sorter"
)

// SnapshotBuilder assembles sorter snapshots with the same positional IDs
// the board parser assigns: columns c1, c2, ... and cards c1.1, c1.2, ...
//
//	snap := testutil.NewSnapshot().
//		Column("Todo #gather_karl").
//		Column("Inbox #ungathered", "Call bank @Karl", "Fix roof").
//		Build()
type SnapshotBuilder struct {
	snap sorter.Snapshot
}

// NewSnapshot starts an empty snapshot.
func NewSnapshot() *SnapshotBuilder {
	return &SnapshotBuilder{}
}

// Column appends a column with the given header and card texts.
func (b *SnapshotBuilder) Column(header string, cards ...string) *SnapshotBuilder {
	colID := "c" + strconv.Itoa(len(b.snap.Columns)+1)
	col := sorter.Column{ID: colID, Header: header}

	for i, text := range cards {
		col.Cards = append(col.Cards, sorter.Card{
			ID:   colID + "." + strconv.Itoa(i+1),
			Text: text,
		})
	}

	b.snap.Columns = append(b.snap.Columns, col)

	return b
}

// Build returns the snapshot.
func (b *SnapshotBuilder) Build() sorter.Snapshot {
	return b.snap
}
