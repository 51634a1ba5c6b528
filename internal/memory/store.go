// Package memory stores career-history snippets and serves
// nearest-context lookups for prompt building. Retrieval itself is
// delegated to SQLite's FTS5 index; this package only chunks documents in
// and formats evidence out.
package memory

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const createSnippetsTable = `
CREATE VIRTUAL TABLE IF NOT EXISTS snippets USING fts5(content, source UNINDEXED);
`

// Snippet is one stored chunk of a career document.
type Snippet struct {
	Content string
	Source  string
}

// Store is the SQLite-backed snippet index.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the snippet database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}

	if _, err := db.Exec(createSnippetsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate memory db: %w", err)
	}

	return &Store{db: db}, nil
}

// Add stores a single snippet.
func (s *Store) Add(content, source string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if _, err := s.db.Exec(`INSERT INTO snippets (content, source) VALUES (?, ?)`, content, source); err != nil {
		return fmt.Errorf("insert snippet: %w", err)
	}
	return nil
}

// AddDocument chunks a document on paragraph boundaries, keeping chunks
// around maxChunk characters, and stores each chunk with the given source
// label. Returns the number of chunks stored.
func (s *Store) AddDocument(text, source string, maxChunk int) (int, error) {
	if maxChunk <= 0 {
		maxChunk = 800
	}

	chunks := chunk(text, maxChunk)
	for _, c := range chunks {
		if err := s.Add(c, source); err != nil {
			return 0, err
		}
	}
	return len(chunks), nil
}

// Search returns up to n snippets ranked by FTS relevance against the
// query text. Free-form text is reduced to a token query first; an empty
// reduction returns no results rather than an FTS syntax error.
func (s *Store) Search(query string, n int) ([]Snippet, error) {
	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT content, source FROM snippets WHERE snippets MATCH ? ORDER BY rank LIMIT ?`,
		match, n,
	)
	if err != nil {
		return nil, fmt.Errorf("search snippets: %w", err)
	}
	defer rows.Close()

	var results []Snippet
	for rows.Next() {
		var snippet Snippet
		if err := rows.Scan(&snippet.Content, &snippet.Source); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		results = append(results, snippet)
	}

	return results, rows.Err()
}

// ContextBlock formats the top-n snippets for a query as an evidence block
// suitable for prompt inclusion, along with the distinct sources used.
func (s *Store) ContextBlock(query string, n int) (string, []string, error) {
	snippets, err := s.Search(query, n)
	if err != nil {
		return "", nil, err
	}

	var block strings.Builder
	seen := make(map[string]struct{})
	var sources []string

	for i, snippet := range snippets {
		fmt.Fprintf(&block, "\n[Evidence %d from %s]:\n%s\n", i+1, snippet.Source, snippet.Content)
		if _, ok := seen[snippet.Source]; !ok {
			seen[snippet.Source] = struct{}{}
			sources = append(sources, snippet.Source)
		}
	}

	return block.String(), sources, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// buildMatchQuery reduces free-form text to a disjunction of quoted tokens
// FTS5 will accept. Only the leading part of the text is used; a job
// description's opening lines carry the densest routing signal.
func buildMatchQuery(text string) string {
	const maxTokens = 24

	if len(text) > 500 {
		text = text[:500]
	}

	seen := make(map[string]struct{})
	var tokens []string

	for _, field := range strings.Fields(text) {
		token := strings.ToLower(strings.Trim(field, ".,;:!?()[]{}\"'`"))
		if len(token) < 3 || !isWord(token) {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, fmt.Sprintf("%q", token))
		if len(tokens) == maxTokens {
			break
		}
	}

	return strings.Join(tokens, " OR ")
}

// chunk splits text on blank lines and packs paragraphs into chunks of at
// most maxChunk characters. A single oversized paragraph becomes its own
// chunk rather than being split mid-sentence.
func chunk(text string, maxChunk int) []string {
	var chunks []string
	var current strings.Builder

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para) > maxChunk {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func isWord(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
