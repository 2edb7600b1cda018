package store

import (
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestAddDocumentReturnsExistingID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM documents WHERE url = \$1`).
		WithArgs("http://a.test/").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	id, err := s.AddDocument("http://a.test/", "title", "content")
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddDocumentInsertsWhenAbsent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM documents WHERE url = \$1`).
		WithArgs("http://new.test/").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO documents`).
		WithArgs("http://new.test/", "title", "content").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	id, err := s.AddDocument("http://new.test/", "title", "content")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceDocumentWordsClearsThenInserts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM document_words WHERE document_id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(`INSERT INTO words`).
		WithArgs("foo").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO document_words`).
		WithArgs(int64(1), int64(1), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.ReplaceDocumentWords(1, map[string]int{"foo": 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchEmptyTermsReturnsEmpty(t *testing.T) {
	s, _ := newMockStore(t)
	results, err := s.Search(nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGenerateSnippetVerbatimWhenShort(t *testing.T) {
	assert.Equal(t, "short content", generateSnippet("short content", []string{"content"}))
}

func TestGenerateSnippetWindowsAroundFirstHit(t *testing.T) {
	content := make([]byte, 0, 400)
	for i := 0; i < 150; i++ {
		content = append(content, 'x')
	}
	content = append(content, []byte("needle")...)
	for i := 0; i < 150; i++ {
		content = append(content, 'y')
	}
	snippet := generateSnippet(string(content), []string{"needle"})
	assert.True(t, len(snippet) > 0)
	assert.Contains(t, snippet, "needle")
	assert.True(t, snippet[:3] == "...")
	assert.True(t, snippet[len(snippet)-3:] == "...")
}

func TestGenerateSnippetNoHitFallsBackToStart(t *testing.T) {
	content := ""
	for i := 0; i < 300; i++ {
		content += "a"
	}
	snippet := generateSnippet(content, []string{"absent"})
	assert.Equal(t, content[:200]+"...", snippet)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "b", "a"}))
}
