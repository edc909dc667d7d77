package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesKnownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s2gpp.toml")
	contents := `
role = "main"
pattern_length = 64
self_correction = true
clustering = "meanshift"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Role == nil || *f.Role != "main" {
		t.Errorf("Role = %v, want main", f.Role)
	}
	if f.PatternLength == nil || *f.PatternLength != 64 {
		t.Errorf("PatternLength = %v, want 64", f.PatternLength)
	}
	if f.SelfCorrection == nil || !*f.SelfCorrection {
		t.Errorf("SelfCorrection = %v, want true", f.SelfCorrection)
	}
	if f.Rate != nil {
		t.Errorf("Rate = %v, want nil (absent key)", f.Rate)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/s2gpp.toml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestMergeString(t *testing.T) {
	fileVal := "from-file"
	if got := MergeString("from-flag", &fileVal); got != "from-flag" {
		t.Errorf("MergeString with non-empty flag = %q, want from-flag", got)
	}
	if got := MergeString("", &fileVal); got != "from-file" {
		t.Errorf("MergeString with empty flag = %q, want from-file", got)
	}
	if got := MergeString("", nil); got != "" {
		t.Errorf("MergeString with nil file value = %q, want empty", got)
	}
}

func TestMergeInt(t *testing.T) {
	fileVal := 42
	if got := MergeInt(7, &fileVal); got != 7 {
		t.Errorf("MergeInt with non-zero flag = %d, want 7", got)
	}
	if got := MergeInt(0, &fileVal); got != 42 {
		t.Errorf("MergeInt with zero flag = %d, want 42", got)
	}
}

func TestMergeBool(t *testing.T) {
	fileVal := true
	if got := MergeBool(false, &fileVal); !got {
		t.Errorf("MergeBool should fall back to file value when flag is false")
	}
	if got := MergeBool(true, nil); !got {
		t.Errorf("MergeBool should keep true flag regardless of file")
	}
}
