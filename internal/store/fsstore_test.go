// SPDX-License-Identifier: MPL-2.0

package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"refit/internal/engine"
)

func fitFixture() *engine.FitResult {
	return &engine.FitResult{
		RunID:         "run-1",
		SpecKey:       "k1",
		EngineVersion: "2.36.0",
		SampledAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Chains:        4,
		Draws: []engine.Draw{
			{Chain: 1, Iteration: 1, Values: map[string]float64{"b_attention": 0.31, "sigma": 0.88}},
			{Chain: 2, Iteration: 1, Values: map[string]float64{"b_attention": 0.29, "sigma": 0.91}},
		},
		Diagnostics: engine.Diagnostics{
			Rhat:    map[string]float64{"b_attention": 1.001},
			EssBulk: map[string]float64{"b_attention": 3400},
		},
		Summary: map[string]engine.ParamSummary{
			"b_attention": {Mean: 0.30, SD: 0.05, Q5: 0.22, Q95: 0.38},
		},
	}
}

func TestFSStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewFSStore(t.TempDir())

	saved, err := NewFitArtifact("fit_rt", fitFixture(), 3000)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save("fit_rt", saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load("fit_rt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Kind != KindFit || loaded.SpecKey != "k1" || loaded.DatasetRows != 3000 {
		t.Errorf("envelope fields lost: %+v", loaded)
	}

	fit, err := loaded.Fit()
	if err != nil {
		t.Fatalf("Fit(): %v", err)
	}
	if !reflect.DeepEqual(fit, fitFixture()) {
		t.Errorf("round-tripped fit differs:\n got %+v\nwant %+v", fit, fitFixture())
	}
}

func TestFSStore_Exists(t *testing.T) {
	t.Parallel()

	s := NewFSStore(t.TempDir())
	if s.Exists("fit_rt") {
		t.Error("empty store should report absence")
	}

	a, err := NewCompiledArtifact("prior_pred_rt", &engine.CompiledArtifact{SpecKey: "k1", Blob: []byte("blob")})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save("prior_pred_rt", a); err != nil {
		t.Fatal(err)
	}

	if !s.Exists("prior_pred_rt") {
		t.Error("saved artifact should exist")
	}
	if s.Exists("fit_rt") {
		t.Error("unsaved name should not exist")
	}
}

func TestFSStore_Load_NotFound(t *testing.T) {
	t.Parallel()

	s := NewFSStore(t.TempDir())
	_, err := s.Load("absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestFSStore_Load_CorruptFile(t *testing.T) {
	t.Parallel()

	t.Run("not json", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		s := NewFSStore(root)
		if err := os.WriteFile(s.Path("fit_rt"), []byte("not json at all"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := s.Load("fit_rt")
		if !errors.Is(err, ErrCorruptArtifact) {
			t.Errorf("want ErrCorruptArtifact, got %v", err)
		}
		var corrupt *CorruptArtifactError
		if !errors.As(err, &corrupt) {
			t.Fatalf("want *CorruptArtifactError, got %T", err)
		}
		if corrupt.Name != "fit_rt" {
			t.Errorf("Name = %q, want fit_rt", corrupt.Name)
		}
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		t.Parallel()

		s := NewFSStore(t.TempDir())
		a, err := NewFitArtifact("fit_rt", fitFixture(), 10)
		if err != nil {
			t.Fatal(err)
		}
		a.Payload = json.RawMessage(`{"run_id": "tampered"}`)
		data, err := json.Marshal(a)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.MkdirAll(s.Root(), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(s.Path("fit_rt"), data, 0o644); err != nil {
			t.Fatal(err)
		}

		_, err = s.Load("fit_rt")
		if !errors.Is(err, ErrCorruptArtifact) {
			t.Errorf("tampered payload should fail checksum, got %v", err)
		}
	})
}

func TestFSStore_Save_CreatesParentDirs(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "nested", "cache")
	s := NewFSStore(root)

	a, err := NewCompiledArtifact("prior_pred_rt", &engine.CompiledArtifact{SpecKey: "k1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save("prior_pred_rt", a); err != nil {
		t.Fatalf("Save into missing directory: %v", err)
	}
	if !s.Exists("prior_pred_rt") {
		t.Error("artifact should exist after save")
	}
}

func TestFSStore_Save_Overwrites(t *testing.T) {
	t.Parallel()

	s := NewFSStore(t.TempDir())

	first, err := NewCompiledArtifact("prior_pred_rt", &engine.CompiledArtifact{SpecKey: "old"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewCompiledArtifact("prior_pred_rt", &engine.CompiledArtifact{SpecKey: "new"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Save("prior_pred_rt", first); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("prior_pred_rt", second); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.Load("prior_pred_rt")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.SpecKey != "new" {
		t.Errorf("SpecKey = %q, want new (silent overwrite)", loaded.SpecKey)
	}
}

func TestFSStore_Save_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewFSStore(root)

	a, err := NewFitArtifact("fit_rt", fitFixture(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save("fit_rt", a); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("cache root has %d entries, want exactly 1", len(entries))
	}
}

func TestFSStore_ListAndRemove(t *testing.T) {
	t.Parallel()

	s := NewFSStore(t.TempDir())

	names, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("empty store should list nothing, got %v", names)
	}

	for _, name := range []string{"fit_rt", "prior_pred_rt"} {
		a, err := NewCompiledArtifact(name, &engine.CompiledArtifact{SpecKey: "k"})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Save(name, a); err != nil {
			t.Fatal(err)
		}
	}

	names, err = s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Errorf("List() = %v, want 2 names", names)
	}

	if err := s.Remove("fit_rt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Exists("fit_rt") {
		t.Error("removed artifact should not exist")
	}
	if err := s.Remove("fit_rt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("removing absent name should return ErrNotFound, got %v", err)
	}
}

func TestArtifact_KindMismatch(t *testing.T) {
	t.Parallel()

	a, err := NewCompiledArtifact("prior_pred_rt", &engine.CompiledArtifact{SpecKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Fit(); err == nil {
		t.Error("decoding a compiled envelope as a fit must fail")
	}
}
