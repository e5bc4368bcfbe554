package sorter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/kb/internal/calendar"
	"github.com/calvinalkan/kb/internal/card"
	"github.com/calvinalkan/kb/internal/gather"
	"github.com/calvinalkan/kb/internal/sorter"
	"github.com/calvinalkan/kb/internal/testutil"
)

func placement(t *testing.T, plan sorter.Plan, cardID string) sorter.Placement {
	t.Helper()

	pl, ok := plan.Lookup(cardID)
	require.True(t, ok, "no placement for %s", cardID)

	return pl
}

func Test_Sort_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		snap       sorter.Snapshot
		wantTarget string
		wantReason sorter.Reason
	}{
		{
			name: "due tomorrow goes to dayoffset=1",
			snap: testutil.NewSnapshot().
				Column("Tomorrow #gather_dayoffset=1").
				Column("Inbox", "Pay rent @2025-03-11").
				Build(),
			wantTarget: "c1",
			wantReason: sorter.ReasonMatched,
		},
		{
			name: "person and weekday",
			snap: testutil.NewSnapshot().
				Column("A #gather_reto&weekday=mon").
				Column("Inbox", "Standup @Reto @2025-03-10").
				Build(),
			wantTarget: "c1",
			wantReason: sorter.ReasonMatched,
		},
		{
			name: "or of persons",
			snap: testutil.NewSnapshot().
				Column("Inbox", "Call @Karl").
				Column("X #gather_karl|bruno").
				Build(),
			wantTarget: "c2",
			wantReason: sorter.ReasonMatched,
		},
		{
			name: "no tags stays",
			snap: testutil.NewSnapshot().
				Column("Inbox", "Plain card").
				Column("X #gather_karl|bruno #gather_day<100").
				Column("Rest #ungathered").
				Build(),
			wantTarget: "",
			wantReason: sorter.ReasonUnclassifiable,
		},
		{
			name: "unmatched goes to fallback",
			snap: testutil.NewSnapshot().
				Column("Inbox", "Later @2025-03-20").
				Column("Soon #gather_day<3").
				Column("Rest #ungathered").
				Build(),
			wantTarget: "c3",
			wantReason: sorter.ReasonFallback,
		},
		{
			name: "unmatched without fallback stays",
			snap: testutil.NewSnapshot().
				Column("Inbox", "Later @2025-03-20").
				Column("Soon #gather_day<3").
				Build(),
			wantTarget: "",
			wantReason: sorter.ReasonNoMatch,
		},
		{
			name: "unsorted is a fallback too",
			snap: testutil.NewSnapshot().
				Column("Inbox", "@Reto").
				Column("Rest #unsorted").
				Build(),
			wantTarget: "c2",
			wantReason: sorter.ReasonFallback,
		},
		{
			name: "sticky never moves",
			snap: testutil.NewSnapshot().
				Column("Inbox", "Pinned @Karl @sticky").
				Column("X #gather_karl").
				Build(),
			wantTarget: "",
			wantReason: sorter.ReasonSticky,
		},
		{
			name: "only typed dates is unclassifiable",
			snap: testutil.NewSnapshot().
				Column("Inbox", "@done=2025-03-10").
				Column("Rest #ungathered").
				Build(),
			wantTarget: "",
			wantReason: sorter.ReasonUnclassifiable,
		},
		{
			name: "matched by own column",
			snap: testutil.NewSnapshot().
				Column("X #gather_karl", "@Karl").
				Build(),
			wantTarget: "c1",
			wantReason: sorter.ReasonMatched,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan := sorter.Sort(tt.snap, testutil.Today)

			var cardID string

			for _, col := range tt.snap.Columns {
				if len(col.Cards) > 0 {
					cardID = col.Cards[0].ID

					break
				}
			}

			pl := placement(t, plan, cardID)
			assert.Equal(t, tt.wantTarget, pl.Target)
			assert.Equal(t, tt.wantReason, pl.Reason)
		})
	}
}

func Test_Sort_First_Match_Wins(t *testing.T) {
	t.Parallel()

	snap := testutil.NewSnapshot().
		Column("Inbox", "@Karl @2025-03-10").
		Column("Karl #gather_karl").
		Column("Today #gather_day=0").
		Build()

	plan := sorter.Sort(snap, testutil.Today)
	assert.Equal(t, "c2", placement(t, plan, "c1.1").Target)

	// Swapping the column order swaps the winner.
	snap.Columns[1], snap.Columns[2] = snap.Columns[2], snap.Columns[1]
	plan = sorter.Sort(snap, testutil.Today)
	assert.Equal(t, "c3", placement(t, plan, "c1.1").Target)
}

func Test_Sort_Without_Gather_Tags_Changes_Nothing(t *testing.T) {
	t.Parallel()

	snap := testutil.NewSnapshot().
		Column("Todo", "@Karl", "@2025-03-10", "plain").
		Column("Doing #row2", "@bruno @2025-03-11").
		Column("Done", "@sticky").
		Build()

	plan := sorter.Sort(snap, testutil.Today)

	require.Len(t, plan.Placements, 5)

	for _, pl := range plan.Placements {
		assert.True(t, pl.Unchanged(), "card %s: %+v", pl.CardID, pl)
	}

	assert.Empty(t, plan.Moves())
}

func Test_Sort_Placements_Follow_Board_Order(t *testing.T) {
	t.Parallel()

	snap := testutil.NewSnapshot().
		Column("A", "a1", "a2").
		Column("B").
		Column("C", "c1").
		Build()

	plan := sorter.Sort(snap, testutil.Today)

	got := make([]string, 0, len(plan.Placements))
	for _, pl := range plan.Placements {
		got = append(got, pl.CardID+"@"+pl.From)
	}

	assert.Equal(t, []string{"c1.1@c1", "c1.2@c1", "c3.1@c3"}, got)
}

func Test_Sort_Second_Fallback_Is_Reported(t *testing.T) {
	t.Parallel()

	snap := testutil.NewSnapshot().
		Column("Inbox", "@Reto").
		Column("First #ungathered").
		Column("Second #unsorted").
		Build()

	plan := sorter.Sort(snap, testutil.Today)

	assert.Equal(t, "c2", plan.Fallback)
	assert.Equal(t, "c2", placement(t, plan, "c1.1").Target)
	require.Len(t, plan.Diagnostics, 1)
	assert.Equal(t, "c3", plan.Diagnostics[0].ColumnID)
	assert.Equal(t, gather.UnsortedTag, plan.Diagnostics[0].Tag)
}

func Test_Sort_Reports_Malformed_Clauses(t *testing.T) {
	t.Parallel()

	snap := testutil.NewSnapshot().
		Column("Inbox", "@Karl").
		Column("Bad #gather_prio=1|karl").
		Build()

	plan := sorter.Sort(snap, testutil.Today)

	assert.Equal(t, "c2", placement(t, plan, "c1.1").Target)
	require.Len(t, plan.Diagnostics, 1)
	assert.Equal(t, "c2", plan.Diagnostics[0].ColumnID)
	assert.Equal(t, "prio=1", plan.Diagnostics[0].Clause)
}

func Test_Sort_Is_Idempotent_On_Same_Day(t *testing.T) {
	t.Parallel()

	snap := testutil.NewSnapshot().
		Column("Overdue #gather_day<0").
		Column("Today #gather_day=0").
		Column("Karl #gather_karl").
		Column("Inbox #ungathered", "@2025-03-01", "@2025-03-10", "@Karl @2025-04-01", "@Anna").
		Build()

	first := sorter.Sort(snap, testutil.Today)
	second := sorter.Sort(snap, testutil.Today)
	assert.Equal(t, first, second)

	applied := apply(snap, first)
	again := sorter.Sort(applied, testutil.Today)
	assert.Empty(t, again.Moves())
}

func Test_Sort_Depends_On_Today(t *testing.T) {
	t.Parallel()

	snap := testutil.NewSnapshot().
		Column("Today #gather_day=0").
		Column("Tomorrow #gather_day=1").
		Column("Inbox", "@2025-03-11").
		Build()

	clock := testutil.NewClock()

	plan := sorter.Sort(snap, clock.Today())
	assert.Equal(t, "c2", placement(t, plan, "c3.1").Target)

	clock.AdvanceDays(1)

	plan = sorter.Sort(snap, clock.Today())
	assert.Equal(t, "c1", placement(t, plan, "c3.1").Target)

	clock.AdvanceDays(1)

	plan = sorter.Sort(snap, clock.Today())
	assert.True(t, placement(t, plan, "c3.1").Unchanged())
}

func Test_Compile_Keeps_Board_Order(t *testing.T) {
	t.Parallel()

	snap := testutil.NewSnapshot().
		Column("A #gather_a").
		Column("B").
		Column("C #ungathered #gather_c").
		Build()

	rules, fallback, diags := sorter.Compile(snap)

	require.Len(t, rules, 3)
	assert.Equal(t, "c1", rules[0].ColumnID)
	assert.True(t, rules[1].Empty())
	assert.True(t, rules[2].IsFallback())
	assert.Equal(t, "c3", fallback)
	assert.Empty(t, diags)
}

// apply moves cards the way a host would, for idempotence checks.
func apply(snap sorter.Snapshot, plan sorter.Plan) sorter.Snapshot {
	index := make(map[string]int, len(snap.Columns))
	out := sorter.Snapshot{Columns: make([]sorter.Column, len(snap.Columns))}

	for i, col := range snap.Columns {
		index[col.ID] = i
		out.Columns[i] = sorter.Column{ID: col.ID, Header: col.Header}
	}

	for _, col := range snap.Columns {
		for _, c := range col.Cards {
			dst := col.ID

			if pl, ok := plan.Lookup(c.ID); ok && pl.Moved() {
				dst = pl.Target
			}

			i := index[dst]
			out.Columns[i].Cards = append(out.Columns[i].Cards, c)
		}
	}

	return out
}

func FuzzSort_Invariants(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{3, 2, 1, 0, 4, 9, 9, 1, 2, 3, 4, 5, 6, 7, 8})
	f.Add([]byte("gather the cards into their columns"))

	f.Fuzz(func(t *testing.T, data []byte) {
		today := calendar.New(2025, 3, 10)
		snap := testutil.NewBoardGen(data, today).Snapshot()

		plan := sorter.Sort(snap, today)
		rules, fallback, _ := sorter.Compile(snap)

		if again := sorter.Sort(snap, today); !assert.Equal(t, plan, again) {
			t.FailNow()
		}

		require.Equal(t, fallback, plan.Fallback)

		for _, col := range snap.Columns {
			for _, c := range col.Cards {
				pl, ok := plan.Lookup(c.ID)
				require.True(t, ok)
				require.Equal(t, col.ID, pl.From)

				facts := card.Extract(c.Text)

				switch {
				case facts.Sticky:
					require.True(t, pl.Unchanged(), "sticky card %q moved", c.Text)
				case !facts.Classifiable():
					require.True(t, pl.Unchanged(), "unclassifiable card %q moved", c.Text)
				case pl.Reason == sorter.ReasonMatched:
					for _, r := range rules {
						if r.ColumnID == pl.Target {
							require.True(t, r.Matches(facts, today))

							break
						}

						require.False(t, r.Matches(facts, today), "earlier column %s also matches %q", r.ColumnID, c.Text)
					}
				default:
					for _, r := range rules {
						require.False(t, r.Matches(facts, today), "column %s matches %q", r.ColumnID, c.Text)
					}

					if fallback == "" {
						require.True(t, pl.Unchanged())
					} else {
						require.Equal(t, fallback, pl.Target)
					}
				}
			}
		}
	})
}
