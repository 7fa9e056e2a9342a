package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsPython(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"main.py", true},
		{"pkg/stubs.pyi", true},
		{"/abs/path/tool.py", true},
		{"main.go", false},
		{"README.md", false},
		{"Makefile", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsPython(tt.path); got != tt.want {
			t.Errorf("IsPython(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGitignoreRules(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"*.pyc", "mod.pyc", false, true},
		{"*.pyc", "pkg/mod.pyc", false, true},
		{"*.pyc", "mod.py", false, false},

		{"build/", "build", true, true},
		{"build/", "src/build", true, true},
		{"build/", "build", false, false},

		{"/setup.py", "setup.py", false, true},
		{"/setup.py", "pkg/setup.py", false, false},

		{"docs/*.py", "docs/conf.py", false, true},
		{"docs/*.py", "src/docs/conf.py", false, false},
	}
	for _, tt := range tests {
		r, ok := parseGitignoreLine(tt.pattern)
		if !ok {
			t.Fatalf("pattern %q did not parse", tt.pattern)
		}
		w := &Walker{ignore: []rule{r}}
		if got := w.Ignored(tt.path, tt.isDir); got != tt.want {
			t.Errorf("pattern %q, path %q (isDir=%v): got %v, want %v",
				tt.pattern, tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestGitignoreNegation(t *testing.T) {
	var rules []rule
	for _, line := range []string{"gen_*.py", "!gen_keep.py"} {
		r, ok := parseGitignoreLine(line)
		if !ok {
			t.Fatalf("pattern %q did not parse", line)
		}
		rules = append(rules, r)
	}
	w := &Walker{ignore: rules}

	if !w.Ignored("gen_a.py", false) {
		t.Error("gen_a.py should be ignored")
	}
	if w.Ignored("gen_keep.py", false) {
		t.Error("gen_keep.py should be re-included")
	}
}

func TestExcludePatterns(t *testing.T) {
	w, err := New(t.TempDir(), []string{"**/.venv/**", "vendor/**"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{".venv", true, true},
		{"sub/.venv", true, true},
		{".venv/lib/site.py", false, true},
		{"vendor/x.py", false, true},
		{"src/app.py", false, false},
	}
	for _, tt := range tests {
		if got := w.Ignored(tt.path, tt.isDir); got != tt.want {
			t.Errorf("Ignored(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestNew_InvalidExclude(t *testing.T) {
	if _, err := New(t.TempDir(), []string{"[unclosed"}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "# generated\nbuild/\n*_pb2.py\n")
	writeFile(t, root, "main.py", "x = 1\n")
	writeFile(t, root, "pkg/__init__.py", "")
	writeFile(t, root, "pkg/util.py", "def f(): pass\n")
	writeFile(t, root, "pkg/api_pb2.py", "")
	writeFile(t, root, "pkg/types.pyi", "")
	writeFile(t, root, "build/lib/main.py", "")
	writeFile(t, root, ".git/hooks/hook.py", "")
	writeFile(t, root, ".venv/lib/site.py", "")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "big.py", strings.Repeat("#", MaxFileSize+1))

	w, err := New(root, []string{"**/.venv/**"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	files, err := w.Files(context.Background())
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	got := strings.Join(files, " ")
	want := "main.py pkg/__init__.py pkg/types.pyi pkg/util.py"
	if got != want {
		t.Errorf("files:\n got  %s\n want %s", got, want)
	}
}

func TestFiles_Canceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "")

	w, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Files(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestFiles_MissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "absent"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := w.Files(context.Background()); err == nil {
		t.Error("expected error for a missing root")
	}
}
