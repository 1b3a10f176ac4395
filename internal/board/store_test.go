package board

import (
	"testing"

	"github.com/evanschultz/tavla/internal/domain"
	"github.com/stretchr/testify/require"
)

func cardIDs(cards []domain.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID+"@"+c.ColumnID)
	}
	return out
}

func columnIDs(columns []domain.Column) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, c.ID)
	}
	return out
}

func newScenarioStore() *Store {
	return FromState(State{
		Columns: []domain.Column{{ID: "A", Title: "A"}, {ID: "B", Title: "B"}},
		Cards: []domain.Card{
			{ID: "c1", ColumnID: "A", Title: "one"},
			{ID: "c2", ColumnID: "A", Title: "two"},
			{ID: "c3", ColumnID: "B", Title: "three"},
		},
	})
}

func TestMoveCardBeforeTargetInOtherColumn(t *testing.T) {
	s := newScenarioStore()
	s.MoveCard("c1", "B", "c3")
	require.Equal(t, []string{"c2@A", "c1@B", "c3@B"}, cardIDs(s.Cards()))
}

func TestMoveCardAppendsWithoutTarget(t *testing.T) {
	s := newScenarioStore()
	s.MoveCard("c1", "B", "")
	require.Equal(t, []string{"c2@A", "c3@B", "c1@B"}, cardIDs(s.Cards()))

	other := newScenarioStore()
	other.MoveCard("c1", "B", "missing")
	require.Equal(t, cardIDs(s.Cards()), cardIDs(other.Cards()))
}

func TestMoveCardSelfTargetKeepsOneCopy(t *testing.T) {
	s := newScenarioStore()
	s.MoveCard("c2", "B", "c2")

	cards := s.Cards()
	require.Len(t, cards, 3)
	require.Equal(t, []string{"c1@A", "c3@B", "c2@B"}, cardIDs(cards))
}

func TestMoveCardUnknownIsNoop(t *testing.T) {
	s := newScenarioStore()
	calls := 0
	s.Observe(func(*Store, Change) { calls++ })

	s.MoveCard("nope", "B", "c1")
	require.Equal(t, []string{"c1@A", "c2@A", "c3@B"}, cardIDs(s.Cards()))
	require.Zero(t, calls)
	require.ErrorIs(t, s.TryMoveCard("nope", "B", ""), ErrNotFound)
}

func TestMoveCardIsIdempotent(t *testing.T) {
	s := newScenarioStore()
	s.MoveCard("c3", "A", "c2")
	first := cardIDs(s.Cards())
	s.MoveCard("c3", "A", "c2")
	require.Equal(t, first, cardIDs(s.Cards()))
	require.Equal(t, []string{"c1@A", "c3@A", "c2@A"}, first)
}

func TestMoveCardPreservesCardSet(t *testing.T) {
	s := newScenarioStore()
	moves := [][3]string{
		{"c1", "B", "c3"},
		{"c3", "A", ""},
		{"c2", "B", "c1"},
		{"c1", "A", "c1"},
		{"c2", "A", "c3"},
	}
	for _, m := range moves {
		s.MoveCard(m[0], m[1], m[2])
		ids := make(map[string]int)
		for _, c := range s.Cards() {
			ids[c.ID]++
		}
		require.Equal(t, map[string]int{"c1": 1, "c2": 1, "c3": 1}, ids)
	}
}

func TestCardsByColumnIsDerivedFresh(t *testing.T) {
	s := newScenarioStore()
	before := s.CardsByColumn("A")
	require.Equal(t, []string{"c1@A", "c2@A"}, cardIDs(before))

	s.MoveCard("c3", "A", "c1")
	require.Equal(t, []string{"c1@A", "c2@A"}, cardIDs(before))
	require.Equal(t, []string{"c3@A", "c1@A", "c2@A"}, cardIDs(s.CardsByColumn("A")))
	require.Empty(t, s.CardsByColumn("B"))
}

func TestMoveColumnScenario(t *testing.T) {
	s := FromState(State{Columns: []domain.Column{{ID: "x"}, {ID: "y"}, {ID: "z"}}})
	s.MoveColumn("z", "y")
	require.Equal(t, []string{"x", "z", "y"}, columnIDs(s.Columns()))
	s.MoveColumn("x", "")
	require.Equal(t, []string{"z", "y", "x"}, columnIDs(s.Columns()))
}

func TestMoveColumnToLastPosition(t *testing.T) {
	s := FromState(State{Columns: []domain.Column{{ID: "x"}, {ID: "y"}, {ID: "z"}}})
	s.MoveColumn("z", "z")
	require.Equal(t, []string{"x", "y", "z"}, columnIDs(s.Columns()))
	s.MoveColumn("x", "")
	require.Equal(t, []string{"y", "z", "x"}, columnIDs(s.Columns()))
	require.ErrorIs(t, s.TryMoveColumn("w", "x"), ErrNotFound)
}

func TestRemoveColumnDoesNotCascade(t *testing.T) {
	s := newScenarioStore()
	s.RemoveColumn("A")
	require.Equal(t, []string{"B"}, columnIDs(s.Columns()))
	require.Len(t, s.CardsByColumn("A"), 2)

	require.Equal(t, 2, s.RemoveCardsInColumn("A"))
	require.Equal(t, []string{"c3@B"}, cardIDs(s.Cards()))
	require.Zero(t, s.RemoveCardsInColumn("A"))

	s.RemoveCard("c3")
	s.RemoveCard("c3")
	s.RemoveColumn("missing")
	require.Empty(t, s.Cards())
}

func TestAddAllocatesSequentialIDs(t *testing.T) {
	s := New()
	col, err := s.AddColumn("Todo")
	require.NoError(t, err)
	require.Equal(t, "col0", col.ID)

	first, err := s.AddCard(col.ID, "first", "")
	require.NoError(t, err)
	second, err := s.AddCard(col.ID, "second", "body")
	require.NoError(t, err)
	require.Equal(t, "ca0", first.ID)
	require.Equal(t, "ca1", second.ID)

	_, err = s.AddCard(col.ID, " ", "")
	require.ErrorIs(t, err, domain.ErrInvalidTitle)

	snap := s.Snapshot()
	require.Equal(t, 2, snap.NextCardID)
	require.Equal(t, 1, snap.NextColumnID)
}

func TestLoadAdvancesCountersPastExistingIDs(t *testing.T) {
	s := FromState(State{
		Columns:    []domain.Column{{ID: "col4", Title: "x"}},
		Cards:      []domain.Card{{ID: "ca9", ColumnID: "col4", Title: "y"}, {ID: "custom", ColumnID: "col4"}},
		NextCardID: 2,
	})
	card, err := s.AddCard("col4", "next", "")
	require.NoError(t, err)
	require.Equal(t, "ca10", card.ID)
	column, err := s.AddColumn("next")
	require.NoError(t, err)
	require.Equal(t, "col5", column.ID)
}

func TestUpdateKeepsPosition(t *testing.T) {
	s := newScenarioStore()
	s.UpdateCard(domain.Card{ID: "c2", ColumnID: "B", Title: "renamed", Description: "d"})
	card, ok := s.Card("c2")
	require.True(t, ok)
	require.Equal(t, "renamed", card.Title)
	require.Equal(t, "A", card.ColumnID)
	require.Equal(t, []string{"c1@A", "c2@A", "c3@B"}, cardIDs(s.Cards()))

	s.UpdateColumn(domain.Column{ID: "B", Title: "Done"})
	column, ok := s.Column("B")
	require.True(t, ok)
	require.Equal(t, "Done", column.Title)
}

func TestObserversSeeCompletedMutations(t *testing.T) {
	s := newScenarioStore()
	var seen []Change
	s.Observe(func(st *Store, c Change) {
		if c.Mutation == MutationMoveCard {
			got, _ := st.CardColumn(c.SubjectID)
			require.Equal(t, c.ColumnID, got)
		}
		seen = append(seen, c)
	})
	s.MoveCard("c1", "B", "")
	s.MoveColumn("A", "")
	s.RemoveCard("c2")
	s.RemoveColumn("A")

	require.Len(t, seen, 4)
	require.Equal(t, []Mutation{MutationMoveCard, MutationMoveColumn, MutationRemoveCard, MutationRemoveColumn},
		[]Mutation{seen[0].Mutation, seen[1].Mutation, seen[2].Mutation, seen[3].Mutation})
}
