package api

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadInput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(file, []byte("BP 140/90\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		file  string
		args  []string
		stdin string
		want  string
	}{
		{"file", file, []string{"ignored"}, "ignored", "BP 140/90\n"},
		{"args", "", []string{"pulse", "88"}, "ignored", "pulse 88"},
		{"stdin", "", nil, "from stdin", "from stdin"},
		{"dash", "-", []string{"ignored"}, "dash stdin", "dash stdin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadInput(tt.file, tt.args, strings.NewReader(tt.stdin))
			if err != nil {
				t.Fatalf("ReadInput() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadInput() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := ReadInput(filepath.Join(t.TempDir(), "missing"), nil, nil); err == nil {
		t.Error("expected error for missing file")
	}
}
