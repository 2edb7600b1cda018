// Package store implements the crawler and search front-end's shared
// inverted-index persistence: documents, words, and the document_words
// relation that joins them, backed by Postgres through sqlx and lib/pq.
package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// SearchResult is one ranked hit: url, title, a generated snippet, and the
// summed term-frequency relevance score.
type SearchResult struct {
	URL       string
	Title     string
	Snippet   string
	Relevance int
}

// Stats summarizes the size of the index.
type Stats struct {
	Documents int
	Words     int
	Triples   int
}

// Store wraps a Postgres connection used serially by many crawl workers and
// by the search front-end; every exported method is its own transaction.
type Store struct {
	db  *sqlx.DB
	log *logrus.Entry
}

// Open connects to Postgres using the given DSN and ensures the schema
// exists.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &Store{db: db, log: logrus.WithField("component", "store")}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddDocument is idempotent on url: it returns the existing id if present,
// otherwise inserts and returns the new id.
func (s *Store) AddDocument(url, title, content string) (int64, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.Get(&id, `SELECT id FROM documents WHERE url = $1`, url)
	if err == nil {
		return id, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up document: %w", err)
	}

	err = tx.Get(&id, `INSERT INTO documents (url, title, content) VALUES ($1, $2, $3) RETURNING id`, url, title, content)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}
	return id, tx.Commit()
}

// DocumentExists reports whether url already has a document.
func (s *Store) DocumentExists(url string) (bool, error) {
	var id int64
	err := s.db.Get(&id, `SELECT id FROM documents WHERE url = $1`, url)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}
	return true, nil
}

// UpdateDocument overwrites title/content for an existing url; it is a
// no-op if the url is absent.
func (s *Store) UpdateDocument(url, title, content string) error {
	_, err := s.db.Exec(`UPDATE documents SET title = $1, content = $2 WHERE url = $3`, title, content, url)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// UpsertWord is idempotent on token.
func (s *Store) UpsertWord(token string) (int64, error) {
	var id int64
	err := s.db.Get(&id, `
		INSERT INTO words (token) VALUES ($1)
		ON CONFLICT (token) DO UPDATE SET token = EXCLUDED.token
		RETURNING id`, token)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert word %q: %w", token, err)
	}
	return id, nil
}

// GetWordID returns a word's id and whether it exists.
func (s *Store) GetWordID(token string) (int64, bool, error) {
	var id int64
	err := s.db.Get(&id, `SELECT id FROM words WHERE token = $1`, token)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up word %q: %w", token, err)
	}
	return id, true, nil
}

// ClearDocumentWords removes every (docID, *) triple.
func (s *Store) ClearDocumentWords(docID int64) error {
	_, err := s.db.Exec(`DELETE FROM document_words WHERE document_id = $1`, docID)
	if err != nil {
		return fmt.Errorf("failed to clear document words: %w", err)
	}
	return nil
}

// AddDocumentWord accumulates: if (docID, wordID) already exists, the
// stored frequency becomes stored+freq; otherwise it is inserted with freq.
func (s *Store) AddDocumentWord(docID, wordID int64, freq int) error {
	_, err := s.db.Exec(`
		INSERT INTO document_words (document_id, word_id, frequency) VALUES ($1, $2, $3)
		ON CONFLICT (document_id, word_id) DO UPDATE SET frequency = document_words.frequency + EXCLUDED.frequency`,
		docID, wordID, freq)
	if err != nil {
		return fmt.Errorf("failed to add document word: %w", err)
	}
	return nil
}

// ReplaceDocumentWords atomically clears all triples for docID then
// upserts a word and triple for each (token, freq) pair. This is the
// transactional replacement path a per-page reindex must use instead of
// repeated AddDocumentWord accumulation.
func (s *Store) ReplaceDocumentWords(docID int64, freqs map[string]int) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM document_words WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("failed to clear document words: %w", err)
	}

	tokens := make([]string, 0, len(freqs))
	for token := range freqs {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	for _, token := range tokens {
		var wordID int64
		err := tx.Get(&wordID, `
			INSERT INTO words (token) VALUES ($1)
			ON CONFLICT (token) DO UPDATE SET token = EXCLUDED.token
			RETURNING id`, token)
		if err != nil {
			return fmt.Errorf("failed to upsert word %q: %w", token, err)
		}
		if _, err := tx.Exec(`INSERT INTO document_words (document_id, word_id, frequency) VALUES ($1, $2, $3)`,
			docID, wordID, freqs[token]); err != nil {
			return fmt.Errorf("failed to insert document word %q: %w", token, err)
		}
	}

	return tx.Commit()
}

// Search returns documents containing every term in terms (conjunctive
// match), ranked by summed frequency descending, truncated to limit.
// Duplicate tokens in terms do not inflate the match.
func (s *Store) Search(terms []string, limit int) ([]SearchResult, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	distinct := dedupe(terms)

	rows, err := s.db.Queryx(`
		SELECT d.url, d.title, d.content, SUM(dw.frequency) AS relevance
		FROM documents d
		JOIN document_words dw ON d.id = dw.document_id
		JOIN words w ON dw.word_id = w.id
		WHERE w.token = ANY($1)
		GROUP BY d.id, d.url, d.title, d.content
		HAVING COUNT(DISTINCT w.token) = $2
		ORDER BY relevance DESC
		LIMIT $3`, pq.Array(distinct), len(distinct), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var url, title, content string
		var relevance int
		if err := rows.Scan(&url, &title, &content, &relevance); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, SearchResult{
			URL:       url,
			Title:     title,
			Snippet:   generateSnippet(content, terms),
			Relevance: relevance,
		})
	}
	return results, rows.Err()
}

// generateSnippet implements the excerpt rule: verbatim if short, otherwise
// a window of up to 200 characters beginning 100 characters before the first
// term hit in the lowercased content, clamped to the content bounds.
func generateSnippet(content string, terms []string) string {
	if len(content) <= 200 {
		return content
	}

	lower := strings.ToLower(content)
	for _, term := range terms {
		pos := strings.Index(lower, term)
		if pos == -1 {
			continue
		}
		start := 0
		if pos > 100 {
			start = pos - 100
		}
		end := start + 200
		if end > len(content) {
			end = len(content)
		}
		snippet := content[start:end]
		if start > 0 {
			snippet = "..." + snippet
		}
		if end < len(content) {
			snippet = snippet + "..."
		}
		return snippet
	}

	return content[:200] + "..."
}

// Stats returns counts of documents, words, and document_words triples.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	if err := s.db.Get(&stats.Documents, `SELECT COUNT(*) FROM documents`); err != nil {
		return Stats{}, fmt.Errorf("failed to count documents: %w", err)
	}
	if err := s.db.Get(&stats.Words, `SELECT COUNT(*) FROM words`); err != nil {
		return Stats{}, fmt.Errorf("failed to count words: %w", err)
	}
	if err := s.db.Get(&stats.Triples, `SELECT COUNT(*) FROM document_words`); err != nil {
		return Stats{}, fmt.Errorf("failed to count document_words: %w", err)
	}
	return stats, nil
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
