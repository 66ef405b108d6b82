package profile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "default")
	s := NewStore(nil)

	p := s.Load(dir)
	if !p.Equal(Default()) {
		t.Errorf("Load(empty) = %+v, want defaults", p)
	}
	if p.Rotations.Min != 0 || p.Rotations.Max != 180 || len(p.Rotations.Allowed) != 0 {
		t.Errorf("default rotations = %+v, want 0..180 with no snaps", p.Rotations)
	}
	if p.DBFS.Min != -80 || p.DBFS.Max != -45 {
		t.Errorf("default dBFS = %+v, want -80..-45", p.DBFS)
	}
	if _, err := os.Stat(Path(dir)); err != nil {
		t.Errorf("default profile was not persisted: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(nil)
	profiles := []Profile{
		Default(),
		{Rotations: Rotations{Min: 0, Max: 180, Allowed: []int{90}}, DBFS: DBFS{Min: -80, Max: -45}},
		{Rotations: Rotations{Min: 20, Max: 150, Allowed: []int{135, 30, 60}}, DBFS: DBFS{Min: -70, Max: -10}},
		{Rotations: Rotations{Min: 45, Max: 45}, DBFS: DBFS{Min: -1, Max: 0}},
	}
	for i, p := range profiles {
		dir := filepath.Join(t.TempDir(), "track")
		if err := s.Save(dir, p); err != nil {
			t.Fatalf("[%d] Save: %v", i, err)
		}
		got := s.Load(dir)
		if !got.Equal(p) {
			t.Errorf("[%d] Load after Save = %+v, want %+v", i, got, p)
		}
	}
}

func TestFileSchema(t *testing.T) {
	dir := t.TempDir()
	p := Profile{Rotations: Rotations{Min: 10, Max: 170, Allowed: []int{90}}, DBFS: DBFS{Min: -60, Max: -20}}
	if err := NewStore(nil).Save(dir, p); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("profile is not JSON: %v", err)
	}
	if raw["rotations"]["min"] != 10.0 || raw["rotations"]["max"] != 170.0 {
		t.Errorf("rotations = %v, want min 10 max 170", raw["rotations"])
	}
	if allowed, ok := raw["rotations"]["allowed"].([]any); !ok || len(allowed) != 1 || allowed[0] != 90.0 {
		t.Errorf("rotations.allowed = %v, want [90]", raw["rotations"]["allowed"])
	}
	if raw["dbfs"]["min"] != -60.0 || raw["dbfs"]["max"] != -20.0 {
		t.Errorf("dbfs = %v, want min -60 max -20", raw["dbfs"])
	}
}

func TestEmptySnapSetSavedAsList(t *testing.T) {
	dir := t.TempDir()
	p := Default()
	p.Rotations.Allowed = nil
	if err := NewStore(nil).Save(dir, p); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(Path(dir))
	var raw struct {
		Rotations struct {
			Allowed json.RawMessage `json:"allowed"`
		} `json:"rotations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw.Rotations.Allowed) != "[]" {
		t.Errorf("allowed = %s, want []", raw.Rotations.Allowed)
	}
}

func TestSaveRejectsDegenerateDBFS(t *testing.T) {
	dir := t.TempDir()
	p := Default()
	p.DBFS = DBFS{Min: -50, Max: -50}
	if err := NewStore(nil).Save(dir, p); !errors.Is(err, ErrInvalid) {
		t.Errorf("Save(min == max) = %v, want ErrInvalid", err)
	}
	if _, err := os.Stat(Path(dir)); !errors.Is(err, os.ErrNotExist) {
		t.Error("invalid profile reached disk")
	}
}

func TestLoadInvalidFallsBackWithoutOverwriting(t *testing.T) {
	s := NewStore(nil)
	tests := map[string]string{
		"degenerate": `{"rotations":{"min":0,"max":180,"allowed":[]},"dbfs":{"min":-45,"max":-45}}`,
		"truncated":  `{"rotations":{"min":0,`,
		"wrong type": `{"rotations":{"min":"zero","max":180,"allowed":[]},"dbfs":{"min":-80,"max":-45}}`,
	}
	for name, content := range tests {
		dir := t.TempDir()
		if err := os.WriteFile(Path(dir), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		if _, err := s.Read(dir); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: Read = %v, want ErrInvalid", name, err)
		}
		if got := s.Load(dir); !got.Equal(Default()) {
			t.Errorf("%s: Load = %+v, want defaults", name, got)
		}
		data, _ := os.ReadFile(Path(dir))
		if string(data) != content {
			t.Errorf("%s: invalid profile was overwritten", name)
		}
	}
}

func TestReadNotFound(t *testing.T) {
	if _, err := NewStore(nil).Read(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(empty dir) = %v, want ErrNotFound", err)
	}
}
