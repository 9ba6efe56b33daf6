package splitter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"9400136208423282801755": "9400136208423282801755",
		"GFUS 0102/0467*9356":    "GFUS_0102_0467_9356",
		"ORDER#12-3_4.5":         "ORDER#12-3_4.5",
		"单号9356":                 "__9356",
		"":                       "",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFallbackName(t *testing.T) {
	if got := FallbackName(0); got != "page_001" {
		t.Errorf("FallbackName(0) = %q", got)
	}
	if got := FallbackName(41); got != "page_042" {
		t.Errorf("FallbackName(41) = %q", got)
	}
}

func TestNewWriter_CreatesOutputDir(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "nested", "out")

	_, err := NewWriter(&WriterConfig{OutDir: outDir})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if _, err := os.Stat(outDir); err != nil {
		t.Errorf("output directory not created: %v", err)
	}
}

func TestNewWriter_RequiresOutDir(t *testing.T) {
	if _, err := NewWriter(&WriterConfig{}); err == nil {
		t.Error("expected error for empty output directory")
	}
}

func TestWritePage_MissingInput(t *testing.T) {
	w, err := NewWriter(&WriterConfig{OutDir: t.TempDir(), Prefix: "ord-"})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	_, err = w.WritePage(filepath.Join(t.TempDir(), "missing.pdf"), 0, "9400136208423282801755")
	if err == nil {
		t.Fatal("expected error for missing input document")
	}

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *WriteError, got %T", err)
	}
	if writeErr.Page != 0 {
		t.Errorf("expected page 0, got %d", writeErr.Page)
	}
	if filepath.Base(writeErr.Path) != "ord-9400136208423282801755.pdf" {
		t.Errorf("unexpected output path %s", writeErr.Path)
	}
}
