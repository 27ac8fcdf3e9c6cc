package sqlite

import (
	"testing"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestProjectRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	project := &types.Project{
		Name:        "billing",
		LocalPath:   "/srv/repos/billing",
		OriginURL:   "https://example.com/billing.git",
		Description: "invoices and payments",
	}
	if err := env.Store.CreateProject(env.Ctx, project); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if project.ID == 0 {
		t.Fatal("Expected project id assigned")
	}

	got, err := env.Store.GetProject(env.Ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.Name != "billing" || got.LocalPath != project.LocalPath || got.OriginURL != project.OriginURL {
		t.Errorf("Project fields do not round-trip: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Expected project timestamps populated")
	}
}

func TestProjectNameConflict(t *testing.T) {
	env := newTestEnv(t)
	if err := env.Store.CreateProject(env.Ctx, &types.Project{Name: "dupe"}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	err := env.Store.CreateProject(env.Ctx, &types.Project{Name: "dupe"})
	if !types.IsKind(err, types.KindConflict) {
		t.Errorf("Expected Conflict for duplicate project name, got %v", err)
	}
}

func TestGetProjectByName(t *testing.T) {
	env := newTestEnv(t)
	project := &types.Project{Name: "search-me"}
	if err := env.Store.CreateProject(env.Ctx, project); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	got, err := env.Store.GetProjectByName(env.Ctx, "search-me")
	if err != nil {
		t.Fatalf("GetProjectByName failed: %v", err)
	}
	if got.ID != project.ID {
		t.Errorf("Expected project %d, got %d", project.ID, got.ID)
	}

	if _, err := env.Store.GetProjectByName(env.Ctx, "missing"); !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound for unknown name, got %v", err)
	}
}

func TestListProjectsOrderedByName(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := env.Store.CreateProject(env.Ctx, &types.Project{Name: name}); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
	}

	projects, err := env.Store.ListProjects(env.Ctx)
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("Expected 3 projects, got %d", len(projects))
	}
	if projects[0].Name != "alpha" || projects[2].Name != "zeta" {
		t.Errorf("Expected name order, got [%s %s %s]",
			projects[0].Name, projects[1].Name, projects[2].Name)
	}
}
