package board

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlanPositions(t *testing.T) {
	s := newTestStore(t)

	first, err := s.CreatePlan("first", nil)
	require.NoError(t, err)
	second, err := s.CreatePlan("second", []PlanFile{{Name: "plan.md", Content: "# Plan"}})
	require.NoError(t, err)

	assert.Equal(t, PlanStatusDraft, first.Status)
	assert.NotNil(t, first.Files)

	plans, err := s.ListPlans(nil, false)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, first.ID, plans[0].ID)
	assert.Equal(t, second.ID, plans[1].ID)
}

func TestListPlansFilters(t *testing.T) {
	s := newTestStore(t)
	draft, err := s.CreatePlan("draft", nil)
	require.NoError(t, err)
	other, err := s.CreatePlan("ready", nil)
	require.NoError(t, err)

	ready := PlanStatusReady
	_, err = s.UpdatePlan(other.ID, PlanPatch{Status: &ready})
	require.NoError(t, err)
	_, err = s.ArchivePlan(draft.ID)
	require.NoError(t, err)

	plans, err := s.ListPlans(nil, false)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, other.ID, plans[0].ID)

	plans, err = s.ListPlans(&ready, true)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, other.ID, plans[0].ID)

	bogus := PlanStatus("imagined")
	_, err = s.ListPlans(&bogus, false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdatePlanRejectsUnknownStatus(t *testing.T) {
	s := newTestStore(t)
	plan, err := s.CreatePlan("p", nil)
	require.NoError(t, err)

	bogus := PlanStatus("imagined")
	_, err = s.UpdatePlan(plan.ID, PlanPatch{Status: &bogus})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPlanFileLifecycle(t *testing.T) {
	s := newTestStore(t)
	plan, err := s.CreatePlan("p", nil)
	require.NoError(t, err)

	got, err := s.AddPlanFile(plan.ID, "plan.md", "# Plan")
	require.NoError(t, err)
	require.Len(t, got.Files, 1)

	_, err = s.AddPlanFile(plan.ID, "plan.md", "duplicate")
	assert.ErrorIs(t, err, ErrConflict)

	file, err := s.GetPlanFile(plan.ID, "plan.md")
	require.NoError(t, err)
	assert.Equal(t, "# Plan", file.Content)

	newName := "roadmap.md"
	content := "# Roadmap"
	got, err = s.UpdatePlanFile(plan.ID, "plan.md", &newName, &content)
	require.NoError(t, err)
	_, ok := got.File("plan.md")
	assert.False(t, ok)
	f, ok := got.File("roadmap.md")
	require.True(t, ok)
	assert.Equal(t, "# Roadmap", f.Content)

	got, err = s.DeletePlanFile(plan.ID, "roadmap.md")
	require.NoError(t, err)
	assert.Empty(t, got.Files)

	_, err = s.DeletePlanFile(plan.ID, "roadmap.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePlanFileRenameOntoExistingName(t *testing.T) {
	s := newTestStore(t)
	plan, err := s.CreatePlan("p", []PlanFile{
		{Name: "a.md", Content: "first"},
		{Name: "b.md", Content: "second"},
	})
	require.NoError(t, err)

	taken := "a.md"
	_, err = s.UpdatePlanFile(plan.ID, "b.md", &taken, nil)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetPlan(plan.ID)
	require.NoError(t, err)
	names := map[string]int{}
	for _, f := range got.Files {
		names[f.Name]++
	}
	assert.Equal(t, map[string]int{"a.md": 1, "b.md": 1}, names)

	// Renaming a file to its own name is not a conflict.
	same := "b.md"
	content := "updated"
	got, err = s.UpdatePlanFile(plan.ID, "b.md", &same, &content)
	require.NoError(t, err)
	f, ok := got.File("b.md")
	require.True(t, ok)
	assert.Equal(t, "updated", f.Content)
}

func TestLegacyDescriptionSurfacesAsPlanFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	// Write a pre-files plan directly, the way older versions persisted it.
	err = s.Update(func(ds *Dataset) error {
		ds.Plans["abc123abc123"] = &Plan{
			ID:          "abc123abc123",
			Title:       "legacy",
			Description: "the old single description",
			Status:      PlanStatusDraft,
		}
		return nil
	})
	require.NoError(t, err)

	plan, err := s.GetPlan("abc123abc123")
	require.NoError(t, err)
	require.Len(t, plan.Files, 1)
	assert.Equal(t, "plan.md", plan.Files[0].Name)
	assert.Equal(t, "the old single description", plan.Files[0].Content)

	// The migration is read-path only: the stored document keeps its
	// original shape until some real mutation writes it back.
	raw, err := os.ReadFile(filepath.Join(dir, "board.json"))
	require.NoError(t, err)
	var onDisk struct {
		Plans map[string]struct {
			Files []PlanFile `json:"files"`
		} `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Empty(t, onDisk.Plans["abc123abc123"].Files)
}

func TestDeletePlan(t *testing.T) {
	s := newTestStore(t)
	plan, err := s.CreatePlan("doomed", nil)
	require.NoError(t, err)

	require.NoError(t, s.DeletePlan(plan.ID))
	_, err = s.GetPlan(plan.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePlan(plan.ID), ErrNotFound)
}
