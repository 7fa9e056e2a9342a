// Package workspace finds the Python sources of a project tree, honoring
// .gitignore and configured exclude patterns.
package workspace

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

// MaxFileSize is the largest file Files will return.
const MaxFileSize = 1 << 20

// IsPython reports whether path names a Python source, going by the file
// name patterns of the Python lexer (*.py, *.pyi, SConstruct, BUILD, ...).
func IsPython(path string) bool {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return false
	}
	return strings.HasPrefix(lexer.Config().Name, "Python")
}

type rule struct {
	glob    glob.Glob
	negate  bool
	dirOnly bool
}

// Walker lists the Python files under a root directory.
type Walker struct {
	root    string
	ignore  []rule
	exclude []glob.Glob
}

// New creates a walker rooted at root. The root's .gitignore is read if
// present; exclude holds extra glob patterns matched against root-relative
// slash-separated paths.
func New(root string, exclude []string) (*Walker, error) {
	w := &Walker{root: root}

	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		w.exclude = append(w.exclude, g)
	}

	rules, err := readGitignore(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil, err
	}
	w.ignore = rules
	return w, nil
}

func readGitignore(path string) ([]rule, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var rules []rule
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, ok := parseGitignoreLine(line)
		if !ok {
			log.Debug().Str("pattern", line).Msg("workspace: skipping unsupported .gitignore pattern")
			continue
		}
		rules = append(rules, r)
	}
	return rules, scanner.Err()
}

// parseGitignoreLine turns one .gitignore entry into a glob over
// "/"-prefixed root-relative paths.
func parseGitignoreLine(line string) (rule, bool) {
	var r rule
	if strings.HasPrefix(line, "!") {
		r.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if line == "" {
		return rule{}, false
	}

	// A slash anywhere but the end anchors the pattern to the root.
	var pattern string
	if strings.Contains(line, "/") {
		pattern = "/" + strings.TrimPrefix(line, "/")
	} else {
		pattern = "**/" + line
	}

	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return rule{}, false
	}
	r.glob = g
	return r, true
}

// Ignored reports whether rel, a root-relative path, is excluded.
func (w *Walker) Ignored(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	rooted := "/" + rel

	for _, g := range w.exclude {
		if g.Match(rel) || g.Match(rooted) || (isDir && (g.Match(rel+"/") || g.Match(rooted+"/"))) {
			return true
		}
	}

	// Last matching rule wins, as in git.
	ignored := false
	for _, r := range w.ignore {
		if r.dirOnly && !isDir {
			continue
		}
		if r.glob.Match(rooted) {
			ignored = !r.negate
		}
	}
	return ignored
}

// Files walks the tree and returns the root-relative paths of every Python
// file that is not ignored, sorted.
func (w *Walker) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == w.root {
				return walkErr
			}
			log.Debug().Err(walkErr).Str("path", path).Msg("workspace: walk error")
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if d.Name() == ".git" || w.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.Ignored(rel, false) || !IsPython(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > MaxFileSize {
			log.Debug().Str("path", rel).Msg("workspace: skipping unreadable or large file")
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
