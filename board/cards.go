package board

import (
	"fmt"
	"sort"
	"time"
)

// CardCreate holds the fields for creating a new card. Zero values get
// defaults: medium priority, backlog column.
type CardCreate struct {
	Title              string
	Description        string
	Priority           Priority
	Column             Column
	DueDate            *time.Time
	Tags               []string
	AgentAssignable    bool
	AcceptanceCriteria []string
}

// CardPatch carries a partial update. Nil fields are left untouched, which is
// distinct from setting a field to its zero value.
type CardPatch struct {
	Title              *string
	Description        *string
	Priority           *Priority
	Column             *Column
	DueDate            *time.Time
	Tags               []string
	Archived           *bool
	AgentAssignable    *bool
	AcceptanceCriteria []string
}

// CreateCard allocates an ID, applies defaults and appends the card to the
// end of its column's order list.
func (s *Store) CreateCard(req CardCreate) (*Card, error) {
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}
	if req.Column == "" {
		req.Column = ColumnBacklog
	}
	if !req.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, req.Priority)
	}
	if !req.Column.Valid() {
		return nil, fmt.Errorf("%w: unknown column %q", ErrValidation, req.Column)
	}

	now := time.Now().UTC()
	card := &Card{
		ID:                 NewID(),
		Title:              req.Title,
		Description:        req.Description,
		Priority:           req.Priority,
		Column:             req.Column,
		DueDate:            req.DueDate,
		Tags:               req.Tags,
		CreatedAt:          now,
		UpdatedAt:          now,
		AgentAssignable:    req.AgentAssignable,
		AcceptanceCriteria: req.AcceptanceCriteria,
		AcceptanceChecked:  make([]bool, len(req.AcceptanceCriteria)),
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}
	if card.AcceptanceCriteria == nil {
		card.AcceptanceCriteria = []string{}
		card.AcceptanceChecked = []bool{}
	}
	if card.AgentAssignable {
		card.AgentStatus = AgentStatusReady
	}

	err := s.Update(func(ds *Dataset) error {
		ds.Cards[card.ID] = card
		ds.ColumnOrder[card.Column] = append(ds.ColumnOrder[card.Column], card.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// GetCard returns a single card by ID.
func (s *Store) GetCard(id string) (*Card, error) {
	ds, err := s.Read()
	if err != nil {
		return nil, err
	}
	card, ok := ds.Cards[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return card, nil
}

// UpdateCard applies a partial update. A column change removes the ID from
// the old column's order list and appends it to the end of the new one, so a
// moved card always lands last in its destination. Replacing the acceptance
// criteria resets the checked state to all-false; enabling agent assignment
// sets the agent status to ready.
func (s *Store) UpdateCard(id string, patch CardPatch) (*Card, error) {
	var updated *Card
	err := s.Update(func(ds *Dataset) error {
		card, ok := ds.Cards[id]
		if !ok {
			return fmt.Errorf("card %s: %w", id, ErrNotFound)
		}

		if patch.Title != nil {
			card.Title = *patch.Title
		}
		if patch.Description != nil {
			card.Description = *patch.Description
		}
		if patch.Priority != nil {
			if !patch.Priority.Valid() {
				return fmt.Errorf("%w: unknown priority %q", ErrValidation, *patch.Priority)
			}
			card.Priority = *patch.Priority
		}
		if patch.DueDate != nil {
			card.DueDate = patch.DueDate
		}
		if patch.Tags != nil {
			card.Tags = patch.Tags
		}
		if patch.Archived != nil {
			card.Archived = *patch.Archived
		}
		if patch.AgentAssignable != nil {
			card.AgentAssignable = *patch.AgentAssignable
			if card.AgentAssignable && card.AgentStatus == "" {
				card.AgentStatus = AgentStatusReady
			}
		}
		if patch.AcceptanceCriteria != nil {
			card.AcceptanceCriteria = patch.AcceptanceCriteria
			card.AcceptanceChecked = make([]bool, len(patch.AcceptanceCriteria))
		}
		if patch.Column != nil && *patch.Column != card.Column {
			if !patch.Column.Valid() {
				return fmt.Errorf("%w: unknown column %q", ErrValidation, *patch.Column)
			}
			ds.ColumnOrder[card.Column] = removeID(ds.ColumnOrder[card.Column], id)
			card.Column = *patch.Column
			ds.ColumnOrder[card.Column] = append(ds.ColumnOrder[card.Column], id)
		}

		card.UpdatedAt = time.Now().UTC()
		updated = card
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MoveCard moves a card to a different column.
func (s *Store) MoveCard(id string, col Column) (*Card, error) {
	return s.UpdateCard(id, CardPatch{Column: &col})
}

// ArchiveCard soft-hides a card. The card stays in its column's order list.
func (s *Store) ArchiveCard(id string) (*Card, error) {
	archived := true
	return s.UpdateCard(id, CardPatch{Archived: &archived})
}

// UnarchiveCard restores an archived card. A no-op on an active card.
func (s *Store) UnarchiveCard(id string) (*Card, error) {
	archived := false
	return s.UpdateCard(id, CardPatch{Archived: &archived})
}

// ArchiveColumn archives every non-archived card currently in the column and
// returns the count of newly archived cards. The whole sweep happens under a
// single store write.
func (s *Store) ArchiveColumn(col Column) (int, error) {
	if !col.Valid() {
		return 0, fmt.Errorf("%w: unknown column %q", ErrValidation, col)
	}
	count := 0
	err := s.Update(func(ds *Dataset) error {
		now := time.Now().UTC()
		for _, card := range ds.Cards {
			if card.Column == col && !card.Archived {
				card.Archived = true
				card.UpdatedAt = now
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteCard permanently removes a card and its order-list entry.
func (s *Store) DeleteCard(id string) error {
	return s.Update(func(ds *Dataset) error {
		card, ok := ds.Cards[id]
		if !ok {
			return fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		delete(ds.Cards, id)
		ds.ColumnOrder[card.Column] = removeID(ds.ColumnOrder[card.Column], id)
		return nil
	})
}

// ListCards returns cards sorted by canonical column order, then by each
// card's index in its column's order list. Archived cards are excluded unless
// requested; col narrows to a single column. Cards missing from their order
// list (inconsistent state) sort last within their column.
func (s *Store) ListCards(col *Column, includeArchived bool) ([]*Card, error) {
	ds, err := s.Read()
	if err != nil {
		return nil, err
	}

	var cards []*Card
	for _, card := range ds.Cards {
		if !includeArchived && card.Archived {
			continue
		}
		if col != nil && card.Column != *col {
			continue
		}
		cards = append(cards, card)
	}

	pos := make(map[string]int, len(ds.Cards))
	for _, list := range ds.ColumnOrder {
		for i, id := range list {
			pos[id] = i
		}
	}
	const missing = 1 << 20
	sort.SliceStable(cards, func(i, j int) bool {
		ci, cj := cards[i].Column.Index(), cards[j].Column.Index()
		if ci != cj {
			return ci < cj
		}
		pi, iok := pos[cards[i].ID]
		pj, jok := pos[cards[j].ID]
		if !iok {
			pi = missing
		}
		if !jok {
			pj = missing
		}
		return pi < pj
	})
	return cards, nil
}

// ListAgentReady returns active cards that are agent-assignable and ready for
// agent work.
func (s *Store) ListAgentReady() ([]*Card, error) {
	cards, err := s.ListCards(nil, false)
	if err != nil {
		return nil, err
	}
	var ready []*Card
	for _, c := range cards {
		if c.AgentAssignable && c.AgentStatus == AgentStatusReady {
			ready = append(ready, c)
		}
	}
	return ready, nil
}

// AddAgentProgress appends an entry to the card's agent timeline.
func (s *Store) AddAgentProgress(id, message string) (*Card, error) {
	var updated *Card
	err := s.Update(func(ds *Dataset) error {
		card, ok := ds.Cards[id]
		if !ok {
			return fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		if !card.AgentAssignable {
			return fmt.Errorf("%w: card %s is not agent-assignable", ErrValidation, id)
		}
		card.AgentProgress = append(card.AgentProgress, ProgressEntry{
			Timestamp: time.Now().UTC(),
			Message:   message,
		})
		card.UpdatedAt = time.Now().UTC()
		updated = card
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetAgentStatus transitions the card's agent workflow status. Moving to
// blocked stores the reason; moving to any other status clears it.
func (s *Store) SetAgentStatus(id string, status AgentStatus, blockedReason string) (*Card, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown agent status %q", ErrValidation, status)
	}
	var updated *Card
	err := s.Update(func(ds *Dataset) error {
		card, ok := ds.Cards[id]
		if !ok {
			return fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		if !card.AgentAssignable {
			return fmt.Errorf("%w: card %s is not agent-assignable", ErrValidation, id)
		}
		card.AgentStatus = status
		if status == AgentStatusBlocked {
			card.BlockedReason = blockedReason
		} else {
			card.BlockedReason = ""
		}
		card.UpdatedAt = time.Now().UTC()
		updated = card
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleCriterion sets the checked state of acceptance criterion index. The
// checked list is grown with false entries if it has fallen behind the
// criteria list before the toggle is applied.
func (s *Store) ToggleCriterion(id string, index int, checked bool) (*Card, error) {
	var updated *Card
	err := s.Update(func(ds *Dataset) error {
		card, ok := ds.Cards[id]
		if !ok {
			return fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		if index < 0 || index >= len(card.AcceptanceCriteria) {
			return fmt.Errorf("%w: criterion index %d out of range", ErrValidation, index)
		}
		for len(card.AcceptanceChecked) < len(card.AcceptanceCriteria) {
			card.AcceptanceChecked = append(card.AcceptanceChecked, false)
		}
		card.AcceptanceChecked[index] = checked
		card.UpdatedAt = time.Now().UTC()
		updated = card
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Board returns the full board organized by column, each column's cards in
// order-list order, archived cards excluded.
func (s *Store) Board() (map[Column][]*Card, error) {
	cards, err := s.ListCards(nil, false)
	if err != nil {
		return nil, err
	}
	columns := make(map[Column][]*Card, len(Columns()))
	for _, col := range Columns() {
		columns[col] = []*Card{}
	}
	for _, card := range cards {
		columns[card.Column] = append(columns[card.Column], card)
	}
	return columns, nil
}

// Stats computes the board statistics summary over all cards, archived
// included. A card is overdue when its due date has passed and it is not done.
func (s *Store) Stats() (*Stats, error) {
	ds, err := s.Read()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ByColumn:   make(map[Column]int, len(Columns())),
		ByPriority: make(map[Priority]int, 4),
	}
	for _, col := range Columns() {
		stats.ByColumn[col] = 0
	}
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		stats.ByPriority[p] = 0
	}

	now := time.Now().UTC()
	for _, card := range ds.Cards {
		stats.TotalCards++
		stats.ByColumn[card.Column]++
		stats.ByPriority[card.Priority]++
		if card.Overdue(now) && card.Column != ColumnDone {
			stats.OverdueCount++
		}
	}
	return stats, nil
}

// removeID returns list without the first occurrence of id.
func removeID(list []string, id string) []string {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
