package store

// schema is the logical DDL from the external interfaces: documents, words,
// and document_words with cascading foreign keys, plus the indexes the
// search query and per-document rewrite path rely on.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id SERIAL PRIMARY KEY,
	url TEXT UNIQUE NOT NULL,
	title TEXT,
	content TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS words (
	id SERIAL PRIMARY KEY,
	token TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS document_words (
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	word_id INTEGER NOT NULL REFERENCES words(id) ON DELETE CASCADE,
	frequency INTEGER NOT NULL,
	PRIMARY KEY (document_id, word_id)
);

CREATE INDEX IF NOT EXISTS idx_words_token ON words(token);
CREATE INDEX IF NOT EXISTS idx_document_words_word_id ON document_words(word_id);
CREATE INDEX IF NOT EXISTS idx_document_words_document_id ON document_words(document_id);
CREATE INDEX IF NOT EXISTS idx_documents_url ON documents(url);
`
