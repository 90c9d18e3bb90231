package board

import (
	"fmt"
	"sort"
	"time"
)

// CreatePlan stores a new draft plan with the supplied files, positioned after
// all existing plans.
func (s *Store) CreatePlan(title string, files []PlanFile) (*Plan, error) {
	now := time.Now().UTC()
	plan := &Plan{
		ID:        NewID(),
		Title:     title,
		Status:    PlanStatusDraft,
		Files:     files,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if plan.Files == nil {
		plan.Files = []PlanFile{}
	}

	err := s.Update(func(ds *Dataset) error {
		plan.Position = len(ds.Plans)
		ds.Plans[plan.ID] = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// GetPlan returns a plan by ID with the legacy-description migration applied.
func (s *Store) GetPlan(id string) (*Plan, error) {
	ds, err := s.Read()
	if err != nil {
		return nil, err
	}
	plan, ok := ds.Plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return migratePlan(plan), nil
}

// ListPlans returns plans sorted by position. Archived plans are excluded
// unless requested; status narrows to a single lifecycle stage.
func (s *Store) ListPlans(status *PlanStatus, includeArchived bool) ([]*Plan, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown plan status %q", ErrValidation, *status)
	}
	ds, err := s.Read()
	if err != nil {
		return nil, err
	}

	var plans []*Plan
	for _, plan := range ds.Plans {
		if !includeArchived && plan.Archived {
			continue
		}
		if status != nil && plan.Status != *status {
			continue
		}
		plans = append(plans, migratePlan(plan))
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Position < plans[j].Position
	})
	return plans, nil
}

// PlanPatch carries a partial plan update; nil fields are left untouched.
type PlanPatch struct {
	Title    *string
	Status   *PlanStatus
	Archived *bool
}

// UpdatePlan applies a partial update to a plan.
func (s *Store) UpdatePlan(id string, patch PlanPatch) (*Plan, error) {
	var updated *Plan
	err := s.Update(func(ds *Dataset) error {
		plan, ok := ds.Plans[id]
		if !ok {
			return fmt.Errorf("plan %s: %w", id, ErrNotFound)
		}
		if patch.Title != nil {
			plan.Title = *patch.Title
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return fmt.Errorf("%w: unknown plan status %q", ErrValidation, *patch.Status)
			}
			plan.Status = *patch.Status
		}
		if patch.Archived != nil {
			plan.Archived = *patch.Archived
		}
		plan.UpdatedAt = time.Now().UTC()
		updated = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return migratePlan(updated), nil
}

// ArchivePlan soft-hides a plan.
func (s *Store) ArchivePlan(id string) (*Plan, error) {
	archived := true
	return s.UpdatePlan(id, PlanPatch{Archived: &archived})
}

// UnarchivePlan restores an archived plan.
func (s *Store) UnarchivePlan(id string) (*Plan, error) {
	archived := false
	return s.UpdatePlan(id, PlanPatch{Archived: &archived})
}

// DeletePlan permanently removes a plan.
func (s *Store) DeletePlan(id string) error {
	return s.Update(func(ds *Dataset) error {
		if _, ok := ds.Plans[id]; !ok {
			return fmt.Errorf("plan %s: %w", id, ErrNotFound)
		}
		delete(ds.Plans, id)
		return nil
	})
}

// AddPlanFile attaches a named document to a plan. File names are a
// uniqueness constraint, not auto-renamed: a duplicate name is a conflict.
func (s *Store) AddPlanFile(planID, name, content string) (*Plan, error) {
	var updated *Plan
	err := s.Update(func(ds *Dataset) error {
		plan, ok := ds.Plans[planID]
		if !ok {
			return fmt.Errorf("plan %s: %w", planID, ErrNotFound)
		}
		if _, exists := plan.File(name); exists {
			return fmt.Errorf("file %q already exists in plan %s: %w", name, planID, ErrConflict)
		}
		plan.Files = append(plan.Files, PlanFile{Name: name, Content: content})
		plan.UpdatedAt = time.Now().UTC()
		updated = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return migratePlan(updated), nil
}

// GetPlanFile returns a single named document from a plan.
func (s *Store) GetPlanFile(planID, name string) (*PlanFile, error) {
	plan, err := s.GetPlan(planID)
	if err != nil {
		return nil, err
	}
	f, ok := plan.File(name)
	if !ok {
		return nil, fmt.Errorf("file %q in plan %s: %w", name, planID, ErrNotFound)
	}
	return &f, nil
}

// UpdatePlanFile locates a document by its current name and applies a rename
// and/or new content. Nil fields are left untouched. Renaming onto an
// existing file name is a conflict, same as AddPlanFile.
func (s *Store) UpdatePlanFile(planID, name string, newName, newContent *string) (*Plan, error) {
	var updated *Plan
	err := s.Update(func(ds *Dataset) error {
		plan, ok := ds.Plans[planID]
		if !ok {
			return fmt.Errorf("plan %s: %w", planID, ErrNotFound)
		}
		for i := range plan.Files {
			if plan.Files[i].Name != name {
				continue
			}
			if newName != nil && *newName != name {
				if _, exists := plan.File(*newName); exists {
					return fmt.Errorf("file %q already exists in plan %s: %w", *newName, planID, ErrConflict)
				}
			}
			if newName != nil {
				plan.Files[i].Name = *newName
			}
			if newContent != nil {
				plan.Files[i].Content = *newContent
			}
			plan.UpdatedAt = time.Now().UTC()
			updated = plan
			return nil
		}
		return fmt.Errorf("file %q in plan %s: %w", name, planID, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return migratePlan(updated), nil
}

// DeletePlanFile removes a named document from a plan.
func (s *Store) DeletePlanFile(planID, name string) (*Plan, error) {
	var updated *Plan
	err := s.Update(func(ds *Dataset) error {
		plan, ok := ds.Plans[planID]
		if !ok {
			return fmt.Errorf("plan %s: %w", planID, ErrNotFound)
		}
		for i := range plan.Files {
			if plan.Files[i].Name == name {
				plan.Files = append(plan.Files[:i], plan.Files[i+1:]...)
				plan.UpdatedAt = time.Now().UTC()
				updated = plan
				return nil
			}
		}
		return fmt.Errorf("file %q in plan %s: %w", name, planID, ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return migratePlan(updated), nil
}

// migratePlan applies the read-path legacy migration: a plan persisted before
// the files feature carries a single description, which is surfaced as a file
// named "plan.md". The migration happens on the returned copy only and is
// never written back by itself.
func migratePlan(p *Plan) *Plan {
	if len(p.Files) > 0 || p.Description == "" {
		return p
	}
	out := *p
	out.Files = []PlanFile{{Name: "plan.md", Content: p.Description}}
	return &out
}
