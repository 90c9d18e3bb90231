// Package board provides the data model and file-backed persistent store for
// the Blaze task board: cards organized into ordered workflow columns, plus
// plan documents from which cards can be generated.
package board

import (
	"encoding/json"
	"fmt"
	"time"
)

// Priority is a card's urgency level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown priority values at the decode boundary.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Priority(s)
	if !v.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, s)
	}
	*p = v
	return nil
}

// Column is a workflow stage bucket on the board.
type Column string

const (
	ColumnBacklog    Column = "backlog"
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "in_progress"
	ColumnReview     Column = "review"
	ColumnDone       Column = "done"
)

// Columns lists all columns in canonical display order.
func Columns() []Column {
	return []Column{ColumnBacklog, ColumnTodo, ColumnInProgress, ColumnReview, ColumnDone}
}

// Valid reports whether c is a known column.
func (c Column) Valid() bool {
	switch c {
	case ColumnBacklog, ColumnTodo, ColumnInProgress, ColumnReview, ColumnDone:
		return true
	}
	return false
}

// Index returns the column's position in the canonical display order.
// Unknown columns sort after known ones.
func (c Column) Index() int {
	for i, col := range Columns() {
		if col == c {
			return i
		}
	}
	return len(Columns())
}

// UnmarshalJSON rejects unknown column values at the decode boundary.
func (c *Column) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Column(s)
	if !v.Valid() {
		return fmt.Errorf("%w: unknown column %q", ErrValidation, s)
	}
	*c = v
	return nil
}

// AgentStatus tracks where an agent-assignable card is in the agent workflow.
type AgentStatus string

const (
	AgentStatusReady      AgentStatus = "ready"
	AgentStatusInProgress AgentStatus = "in_progress"
	AgentStatusBlocked    AgentStatus = "blocked"
	AgentStatusDone       AgentStatus = "done"
)

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusReady, AgentStatusInProgress, AgentStatusBlocked, AgentStatusDone:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown agent status values at the decode boundary.
func (s *AgentStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v := AgentStatus(str)
	if !v.Valid() {
		return fmt.Errorf("%w: unknown agent status %q", ErrValidation, str)
	}
	*s = v
	return nil
}

// PlanStatus is a plan's lifecycle stage.
type PlanStatus string

const (
	PlanStatusDraft    PlanStatus = "draft"
	PlanStatusReady    PlanStatus = "ready"
	PlanStatusApproved PlanStatus = "approved"
)

// Valid reports whether s is a known plan status.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusReady, PlanStatusApproved:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown plan status values at the decode boundary.
func (s *PlanStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v := PlanStatus(str)
	if !v.Valid() {
		return fmt.Errorf("%w: unknown plan status %q", ErrValidation, str)
	}
	*s = v
	return nil
}

// ProgressEntry is one append-only entry in a card's agent timeline.
type ProgressEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Card is a single unit of work on the board.
//
// A card's position within its column is determined by its index in the
// column's ordered-ID list (Dataset.ColumnOrder), not by the stored Position
// field, which is kept only for backward compatibility with old data files.
type Card struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority"`
	Column      Column    `json:"column"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Position    int       `json:"position"`
	Archived    bool      `json:"archived"`

	// Agent workflow
	AgentAssignable bool            `json:"agent_assignable"`
	AgentStatus     AgentStatus     `json:"agent_status,omitempty"`
	AgentProgress   []ProgressEntry `json:"agent_progress,omitempty"`
	BlockedReason   string          `json:"blocked_reason,omitempty"`

	// Acceptance criteria; AcceptanceChecked always has the same length as
	// AcceptanceCriteria and resets to all-false when criteria are replaced.
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	AcceptanceChecked  []bool   `json:"acceptance_checked"`
}

// Overdue reports whether the card's due date has passed.
func (c *Card) Overdue(now time.Time) bool {
	return c.DueDate != nil && c.DueDate.Before(now)
}

// PlanFile is a named text document attached to a plan. Names are unique
// within a plan.
type PlanFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Plan is a container of named text documents describing a larger initiative.
type Plan struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"` // legacy, migrated into files on read
	Status      PlanStatus `json:"status"`
	Files       []PlanFile `json:"files"`
	Archived    bool       `json:"archived"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Position    int        `json:"position"`
}

// File returns the plan file with the given name, if present.
func (p *Plan) File(name string) (PlanFile, bool) {
	for _, f := range p.Files {
		if f.Name == name {
			return f, true
		}
	}
	return PlanFile{}, false
}

// Dataset is the whole persisted document: every read and write moves it as a
// unit. ColumnOrder is the authoritative ordering source; every card ID
// appears in exactly one column's list, matching the card's own Column field.
type Dataset struct {
	Cards       map[string]*Card    `json:"cards"`
	ColumnOrder map[Column][]string `json:"column_order"`
	Plans       map[string]*Plan    `json:"plans"`
}

// NewDataset creates an empty dataset with one order list per column.
func NewDataset() *Dataset {
	order := make(map[Column][]string, len(Columns()))
	for _, col := range Columns() {
		order[col] = []string{}
	}
	return &Dataset{
		Cards:       make(map[string]*Card),
		ColumnOrder: order,
		Plans:       make(map[string]*Plan),
	}
}

// Stats is the board statistics summary.
type Stats struct {
	TotalCards   int              `json:"total_cards"`
	ByColumn     map[Column]int   `json:"by_column"`
	ByPriority   map[Priority]int `json:"by_priority"`
	OverdueCount int              `json:"overdue_count"`
}
