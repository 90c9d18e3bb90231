package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCardDefaults(t *testing.T) {
	s := newTestStore(t)

	card, err := s.CreateCard(CardCreate{Title: "minimal"})
	require.NoError(t, err)

	assert.Equal(t, PriorityMedium, card.Priority)
	assert.Equal(t, ColumnBacklog, card.Column)
	assert.NotNil(t, card.Tags)
	assert.Empty(t, card.Tags)
	assert.False(t, card.AgentAssignable)
	assert.Empty(t, card.AgentStatus)
	assert.False(t, card.CreatedAt.IsZero())
}

func TestCreateCardAgentAssignableStartsReady(t *testing.T) {
	s := newTestStore(t)

	card, err := s.CreateCard(CardCreate{Title: "agent work", AgentAssignable: true})
	require.NoError(t, err)
	assert.Equal(t, AgentStatusReady, card.AgentStatus)
}

func TestCreateCardRejectsUnknownEnums(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateCard(CardCreate{Title: "bad", Priority: "critical"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateCard(CardCreate{Title: "bad", Column: "limbo"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateCardPartial(t *testing.T) {
	s := newTestStore(t)
	card, err := s.CreateCard(CardCreate{Title: "before", Description: "desc"})
	require.NoError(t, err)

	title := "after"
	got, err := s.UpdateCard(card.ID, CardPatch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "after", got.Title)
	assert.Equal(t, "desc", got.Description, "untouched field must survive")
	assert.True(t, got.UpdatedAt.After(card.UpdatedAt) || got.UpdatedAt.Equal(card.UpdatedAt))
}

func TestUpdateCardNotFound(t *testing.T) {
	s := newTestStore(t)
	title := "x"
	_, err := s.UpdateCard("ffffffffffff", CardPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCriteriaResetsChecked(t *testing.T) {
	s := newTestStore(t)
	card, err := s.CreateCard(CardCreate{Title: "c", AcceptanceCriteria: []string{"a", "b"}})
	require.NoError(t, err)

	_, err = s.ToggleCriterion(card.ID, 0, true)
	require.NoError(t, err)

	got, err := s.UpdateCard(card.ID, CardPatch{AcceptanceCriteria: []string{"a", "b", "c"}})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, got.AcceptanceChecked)
}

func TestToggleCriterionBounds(t *testing.T) {
	s := newTestStore(t)
	card, err := s.CreateCard(CardCreate{Title: "c", AcceptanceCriteria: []string{"only"}})
	require.NoError(t, err)

	got, err := s.ToggleCriterion(card.ID, 0, true)
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, got.AcceptanceChecked)

	_, err = s.ToggleCriterion(card.ID, 1, true)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.ToggleCriterion(card.ID, -1, true)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMoveCardAppendsToDestination(t *testing.T) {
	s := newTestStore(t)
	a, err := s.CreateCard(CardCreate{Title: "a", Column: ColumnTodo})
	require.NoError(t, err)
	b, err := s.CreateCard(CardCreate{Title: "b", Column: ColumnBacklog})
	require.NoError(t, err)

	moved, err := s.MoveCard(b.ID, ColumnTodo)
	require.NoError(t, err)
	assert.Equal(t, ColumnTodo, moved.Column)

	ds, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ds.ColumnOrder[ColumnTodo])
	assert.Empty(t, ds.ColumnOrder[ColumnBacklog])
}

func TestListCardsOrdering(t *testing.T) {
	s := newTestStore(t)
	todo, err := s.CreateCard(CardCreate{Title: "todo", Column: ColumnTodo})
	require.NoError(t, err)
	first, err := s.CreateCard(CardCreate{Title: "first", Column: ColumnBacklog})
	require.NoError(t, err)
	second, err := s.CreateCard(CardCreate{Title: "second", Column: ColumnBacklog})
	require.NoError(t, err)

	cards, err := s.ListCards(nil, false)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, first.ID, cards[0].ID)
	assert.Equal(t, second.ID, cards[1].ID)
	assert.Equal(t, todo.ID, cards[2].ID)

	col := ColumnBacklog
	backlog, err := s.ListCards(&col, false)
	require.NoError(t, err)
	assert.Len(t, backlog, 2)
}

func TestArchiveExcludedFromListing(t *testing.T) {
	s := newTestStore(t)
	card, err := s.CreateCard(CardCreate{Title: "hide me"})
	require.NoError(t, err)

	archived, err := s.ArchiveCard(card.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	cards, err := s.ListCards(nil, false)
	require.NoError(t, err)
	assert.Empty(t, cards)

	all, err := s.ListCards(nil, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	restored, err := s.UnarchiveCard(card.ID)
	require.NoError(t, err)
	assert.False(t, restored.Archived)
}

func TestArchiveColumnCountsNewlyArchived(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateCard(CardCreate{Title: "a", Column: ColumnDone})
	require.NoError(t, err)
	b, err := s.CreateCard(CardCreate{Title: "b", Column: ColumnDone})
	require.NoError(t, err)
	_, err = s.CreateCard(CardCreate{Title: "elsewhere", Column: ColumnTodo})
	require.NoError(t, err)

	_, err = s.ArchiveCard(b.ID)
	require.NoError(t, err)

	count, err := s.ArchiveColumn(ColumnDone)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "already archived cards are not recounted")

	count, err = s.ArchiveColumn(ColumnDone)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = s.ArchiveColumn("limbo")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteCardRemovesOrderEntry(t *testing.T) {
	s := newTestStore(t)
	card, err := s.CreateCard(CardCreate{Title: "gone"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCard(card.ID))

	_, err = s.GetCard(card.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	ds, err := s.Read()
	require.NoError(t, err)
	assert.NotContains(t, ds.ColumnOrder[ColumnBacklog], card.ID)

	assert.ErrorIs(t, s.DeleteCard(card.ID), ErrNotFound)
}

func TestAgentProgressRequiresAssignable(t *testing.T) {
	s := newTestStore(t)
	plain, err := s.CreateCard(CardCreate{Title: "plain"})
	require.NoError(t, err)

	_, err = s.AddAgentProgress(plain.ID, "working")
	assert.ErrorIs(t, err, ErrValidation)

	assignable, err := s.CreateCard(CardCreate{Title: "bot", AgentAssignable: true})
	require.NoError(t, err)

	got, err := s.AddAgentProgress(assignable.ID, "started")
	require.NoError(t, err)
	require.Len(t, got.AgentProgress, 1)
	assert.Equal(t, "started", got.AgentProgress[0].Message)
	assert.False(t, got.AgentProgress[0].Timestamp.IsZero())
}

func TestSetAgentStatusBlockedReason(t *testing.T) {
	s := newTestStore(t)
	card, err := s.CreateCard(CardCreate{Title: "bot", AgentAssignable: true})
	require.NoError(t, err)

	got, err := s.SetAgentStatus(card.ID, AgentStatusBlocked, "missing credentials")
	require.NoError(t, err)
	assert.Equal(t, AgentStatusBlocked, got.AgentStatus)
	assert.Equal(t, "missing credentials", got.BlockedReason)

	got, err = s.SetAgentStatus(card.ID, AgentStatusInProgress, "")
	require.NoError(t, err)
	assert.Empty(t, got.BlockedReason, "leaving blocked clears the reason")

	_, err = s.SetAgentStatus(card.ID, "napping", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListAgentReady(t *testing.T) {
	s := newTestStore(t)
	ready, err := s.CreateCard(CardCreate{Title: "ready", AgentAssignable: true})
	require.NoError(t, err)
	busy, err := s.CreateCard(CardCreate{Title: "busy", AgentAssignable: true})
	require.NoError(t, err)
	_, err = s.SetAgentStatus(busy.ID, AgentStatusInProgress, "")
	require.NoError(t, err)
	_, err = s.CreateCard(CardCreate{Title: "manual"})
	require.NoError(t, err)

	cards, err := s.ListAgentReady()
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, ready.ID, cards[0].ID)
}

func TestBoardGroupsByColumn(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateCard(CardCreate{Title: "a", Column: ColumnTodo})
	require.NoError(t, err)
	hidden, err := s.CreateCard(CardCreate{Title: "b", Column: ColumnTodo})
	require.NoError(t, err)
	_, err = s.ArchiveCard(hidden.ID)
	require.NoError(t, err)

	columns, err := s.Board()
	require.NoError(t, err)
	assert.Len(t, columns, len(Columns()))
	assert.Len(t, columns[ColumnTodo], 1)
	assert.Empty(t, columns[ColumnDone])
}

func TestStatsOverdue(t *testing.T) {
	s := newTestStore(t)
	past := time.Now().UTC().Add(-24 * time.Hour)

	_, err := s.CreateCard(CardCreate{Title: "late", DueDate: &past, Column: ColumnTodo})
	require.NoError(t, err)
	_, err = s.CreateCard(CardCreate{Title: "done late", DueDate: &past, Column: ColumnDone})
	require.NoError(t, err)
	_, err = s.CreateCard(CardCreate{Title: "no due", Priority: PriorityHigh})
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCards)
	assert.Equal(t, 1, stats.OverdueCount, "cards in done are never overdue")
	assert.Equal(t, 1, stats.ByColumn[ColumnTodo])
	assert.Equal(t, 1, stats.ByPriority[PriorityHigh])
	assert.Equal(t, 2, stats.ByPriority[PriorityMedium])
}
