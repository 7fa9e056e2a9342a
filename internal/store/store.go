// Package store provides a SQLite export of computed document outlines.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // register sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path     TEXT PRIMARY KEY,
	hash     TEXT NOT NULL,
	indexed  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	path        TEXT NOT NULL,
	parent      INTEGER REFERENCES symbols(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	detail      TEXT NOT NULL,
	kind        INTEGER NOT NULL,
	start_line  INTEGER NOT NULL,
	start_char  INTEGER NOT NULL,
	end_line    INTEGER NOT NULL,
	end_char    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbols(path);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
`

// Entry is one symbol returned by Search.
type Entry struct {
	Path      string
	Name      string
	Detail    string
	Kind      protocol.SymbolKind
	Range     protocol.Range
	Container string // name of the enclosing symbol, if any
}

// Store is a SQLite database of document outlines.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens an outline database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open outline db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// ContentHash returns the digest ReplaceFile records for a file's source.
func ContentHash(src []byte) string {
	h := sha256.Sum256(src)
	return hex.EncodeToString(h[:])
}

// ReplaceFile stores the outline of path, replacing any previous one. hash
// is the ContentHash of the source the outline was computed from.
func (s *Store) ReplaceFile(ctx context.Context, path, hash string, syms []protocol.DocumentSymbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM symbols WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete symbols of %s: %w", path, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO symbols (path, parent, name, detail, kind, start_line, start_char, end_line, end_char)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	if err := insertTree(ctx, stmt, path, sql.NullInt64{}, syms); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO files (path, hash, indexed) VALUES (?, ?, ?)",
		path, hash, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("record %s: %w", path, err)
	}

	return tx.Commit()
}

// insertTree writes syms in pre-order so that ids follow document order.
func insertTree(ctx context.Context, stmt *sql.Stmt, path string, parent sql.NullInt64, syms []protocol.DocumentSymbol) error {
	for _, sym := range syms {
		res, err := stmt.ExecContext(ctx,
			path, parent, sym.Name, sym.Detail, int64(sym.Kind),
			int64(sym.Range.Start.Line), int64(sym.Range.Start.Character),
			int64(sym.Range.End.Line), int64(sym.Range.End.Character),
		)
		if err != nil {
			return fmt.Errorf("insert %s in %s: %w", sym.Name, path, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertTree(ctx, stmt, path, sql.NullInt64{Int64: id, Valid: true}, sym.Children); err != nil {
			return err
		}
	}
	return nil
}

type node struct {
	sym  protocol.DocumentSymbol
	kids []*node
}

func (n *node) build() protocol.DocumentSymbol {
	sym := n.sym
	for _, kid := range n.kids {
		sym.Children = append(sym.Children, kid.build())
	}
	return sym
}

// Symbols rebuilds the stored outline of path. A path that was never
// stored yields an empty result.
func (s *Store) Symbols(ctx context.Context, path string) ([]protocol.DocumentSymbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent, name, detail, kind, start_line, start_char, end_line, end_char
		 FROM symbols WHERE path = ? ORDER BY id`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := make(map[int64]*node)
	var roots []*node
	for rows.Next() {
		var (
			id     int64
			parent sql.NullInt64
			n      node
		)
		rng, kind, err := scanSymbol(rows, &id, &parent, &n.sym.Name, &n.sym.Detail)
		if err != nil {
			return nil, err
		}
		n.sym.Kind = kind
		n.sym.Range = rng
		n.sym.SelectionRange = rng

		nodes[id] = &n
		if p, ok := nodes[parent.Int64]; parent.Valid && ok {
			p.kids = append(p.kids, &n)
		} else {
			roots = append(roots, &n)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]protocol.DocumentSymbol, 0, len(roots))
	for _, r := range roots {
		out = append(out, r.build())
	}
	return out, nil
}

// Search returns symbols whose name contains query, case-insensitively,
// ordered by path and document order. limit <= 0 means no limit.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.path, COALESCE(p.name, ''), s.name, s.detail, s.kind,
		        s.start_line, s.start_char, s.end_line, s.end_char
		 FROM symbols s LEFT JOIN symbols p ON p.id = s.parent
		 WHERE lower(s.name) LIKE ? ESCAPE '\'
		 ORDER BY s.path, s.id
		 LIMIT ?`,
		"%"+escapeLike(normalizeQuery(query))+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		rng, kind, err := scanSymbol(rows, &e.Path, &e.Container, &e.Name, &e.Detail)
		if err != nil {
			return nil, err
		}
		e.Kind = kind
		e.Range = rng
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Files returns every stored path, sorted.
func (s *Store) Files(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// FileHash returns the content hash recorded for path, or "" when path was
// never stored.
func (s *Store) FileHash(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT hash FROM files WHERE path = ?", path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("hash of %s: %w", path, err)
	}
	return hash, nil
}

// Prune removes every stored file not listed in keep and returns how many
// were removed. Either every removal is applied or none is.
func (s *Store) Prune(ctx context.Context, keep []string) (int, error) {
	stored, err := s.Files(ctx)
	if err != nil {
		return 0, err
	}
	keepSet := make(map[string]bool, len(keep))
	for _, p := range keep {
		keepSet[p] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	removed := 0
	for _, path := range stored {
		if keepSet[path] {
			continue
		}
		for _, q := range []string{"DELETE FROM symbols WHERE path = ?", "DELETE FROM files WHERE path = ?"} {
			if _, err := tx.ExecContext(ctx, q, path); err != nil {
				return 0, fmt.Errorf("prune %s: %w", path, err)
			}
		}
		removed++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	if removed > 0 {
		log.Info().Int("deleted", removed).Msg("pruned files no longer in the workspace")
	}
	return removed, nil
}

// scanSymbol scans two leading text columns, name, detail, kind and the
// four range columns.
func scanSymbol(rows *sql.Rows, first, second any, name, detail *string) (protocol.Range, protocol.SymbolKind, error) {
	var kind, sl, sc, el, ec int64
	if err := rows.Scan(first, second, name, detail, &kind, &sl, &sc, &el, &ec); err != nil {
		return protocol.Range{}, 0, err
	}
	rng := protocol.Range{
		Start: protocol.Position{Line: uint32(sl), Character: uint32(sc)},
		End:   protocol.Position{Line: uint32(el), Character: uint32(ec)},
	}
	return rng, protocol.SymbolKind(kind), nil
}

// normalizeQuery lowercases and trims a query string.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
