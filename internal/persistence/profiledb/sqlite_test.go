package profiledb

import (
	"path/filepath"
	"testing"

	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/skills"
	"driftbase.gg/internal/sim/tuning"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "profiles.sqlite")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	p := &profile.Profile{
		ID:      "s1",
		Edition: "standard",
		Info:    profile.Info{Experience: 1234, Level: 3},
		Skills: map[string]*skills.Skill{
			skills.Crafting: {ID: skills.Crafting, Progress: 250},
		},
		UnlockedRecipes: []string{"craft_soap"},
	}
	if err := s.SaveProfile(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Close drains the writer queue; reopen to prove the bytes hit disk.
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.LoadProfile("s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatalf("profile not persisted")
	}
	if got.Info.Experience != 1234 || got.Info.Level != 3 {
		t.Fatalf("info: got %+v", got.Info)
	}
	if got.Skills[skills.Crafting].Progress != 250 {
		t.Fatalf("skill progress: got %v want 250", got.Skills[skills.Crafting].Progress)
	}
	if len(got.UnlockedRecipes) != 1 || got.UnlockedRecipes[0] != "craft_soap" {
		t.Fatalf("unlocks: got %v", got.UnlockedRecipes)
	}
}

func TestStore_LoadMissingProfile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "profiles.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	got, err := s.LoadProfile("ghost")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v want nil for absent profile", got)
	}
}

func TestStore_LoadAll(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "profiles.sqlite")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := s.SaveProfile(&profile.Profile{ID: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("profiles: got %d want 3", len(all))
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "profiles.sqlite")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SaveProfile(&profile.Profile{ID: "s1", Info: profile.Info{Level: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveProfile(&profile.Profile{ID: "s1", Info: profile.Info{Level: 7}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.LoadProfile("s1")
	if err != nil || got == nil {
		t.Fatalf("load: %v %v", got, err)
	}
	if got.Info.Level != 7 {
		t.Fatalf("level: got %d want 7", got.Info.Level)
	}
}

func TestStore_UpsertCatalogs(t *testing.T) {
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}

	s, err := Open(filepath.Join(t.TempDir(), "profiles.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.UpsertCatalogs("../../../configs", cats, tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	// Four catalog files plus the tuning snapshot.
	if n != 5 {
		t.Fatalf("catalog rows: got %d want 5", n)
	}

	var digest string
	err = s.db.QueryRow(`SELECT digest FROM catalogs WHERE name='recipes'`).Scan(&digest)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if digest != cats.Recipes.Digest {
		t.Fatalf("recipes digest mismatch: got %s want %s", digest, cats.Recipes.Digest)
	}
}
