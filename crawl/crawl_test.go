package crawl

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iparadigms/searchengine/fetch"
)

// fakeDownloader serves canned pages keyed by URL, mirroring the fetch
// package's own mapRoundTrip fixture style.
type fakeDownloader struct {
	mu    sync.Mutex
	pages map[string]fetch.Result
}

func (f *fakeDownloader) Download(url string) fetch.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.pages[url]; ok {
		return r
	}
	return fetch.Result{Status: 404}
}

// fakeIndex records documents and their word frequencies in memory.
type fakeIndex struct {
	mu        sync.Mutex
	nextID    int64
	docs      map[string]int64 // url -> id
	titles    map[int64]string
	wordFreqs map[int64]map[string]int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		docs:      make(map[string]int64),
		titles:    make(map[int64]string),
		wordFreqs: make(map[int64]map[string]int),
	}
}

func (f *fakeIndex) AddDocument(url, title, content string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.docs[url]; ok {
		return id, nil
	}
	f.nextID++
	id := f.nextID
	f.docs[url] = id
	f.titles[id] = title
	return id, nil
}

func (f *fakeIndex) ReplaceDocumentWords(docID int64, freqs map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wordFreqs[docID] = freqs
	return nil
}

func TestCrawlSingleDocumentScenario(t *testing.T) {
	downloader := &fakeDownloader{pages: map[string]fetch.Result{
		"http://a.test/": {
			Status:      200,
			ContentType: "text/html",
			Body:        `<html><title>Hi</title><body>foo bar foo baz</body></html>`,
		},
	}}
	index := newFakeIndex()

	engine := New(Options{StartURL: "http://a.test/", MaxDepth: 0, Workers: 2}, downloader, index)
	run(t, engine)

	id, ok := index.docs["http://a.test/"]
	require.True(t, ok)
	assert.Equal(t, "Hi", index.titles[id])
	assert.Equal(t, map[string]int{"foo": 2, "bar": 1, "baz": 1}, index.wordFreqs[id])

	stats := engine.Stats()
	assert.EqualValues(t, 1, stats.Processed)
	assert.EqualValues(t, 0, stats.Errors)
}

func TestCrawlReachesLinkedPagesWithinDepth(t *testing.T) {
	downloader := &fakeDownloader{pages: map[string]fetch.Result{
		"http://a.test/": {
			Status:      200,
			ContentType: "text/html",
			Body:        `<html><title>Seed</title><body><a href="http://a.test/p1">one</a><a href="http://a.test/p2">two</a></body></html>`,
		},
		"http://a.test/p1": {
			Status:      200,
			ContentType: "text/html",
			Body:        `<html><title>P1</title><body>shared words here</body></html>`,
		},
		"http://a.test/p2": {
			Status:      200,
			ContentType: "text/html",
			Body:        `<html><title>P2</title><body>shared different text</body></html>`,
		},
	}}
	index := newFakeIndex()

	engine := New(Options{StartURL: "http://a.test/", MaxDepth: 1, Workers: 3}, downloader, index)
	run(t, engine)

	assert.Len(t, index.docs, 3)
	stats := engine.Stats()
	assert.EqualValues(t, 3, stats.Processed)
}

func TestCrawlNonHTMLContentIsSkippedWithoutError(t *testing.T) {
	downloader := &fakeDownloader{pages: map[string]fetch.Result{
		"http://a.test/doc.pdf": {Status: 200, ContentType: "application/pdf", Body: "%PDF-"},
	}}
	index := newFakeIndex()

	engine := New(Options{StartURL: "http://a.test/doc.pdf", MaxDepth: 0, Workers: 1}, downloader, index)
	run(t, engine)

	stats := engine.Stats()
	assert.EqualValues(t, 0, stats.Processed)
	assert.EqualValues(t, 0, stats.Errors)
}

func TestCrawlDownloadErrorIsCounted(t *testing.T) {
	downloader := &fakeDownloader{pages: map[string]fetch.Result{}}
	index := newFakeIndex()

	engine := New(Options{StartURL: "http://missing.test/", MaxDepth: 0, Workers: 1}, downloader, index)
	run(t, engine)

	stats := engine.Stats()
	assert.EqualValues(t, 0, stats.Processed)
	assert.EqualValues(t, 1, stats.Errors)
}

func TestCrawlDepthBoundStopsTraversal(t *testing.T) {
	downloader := &fakeDownloader{pages: map[string]fetch.Result{
		"http://a.test/": {
			Status:      200,
			ContentType: "text/html",
			Body:        `<html><title>Seed</title><body><a href="http://a.test/deep">deep</a></body></html>`,
		},
		"http://a.test/deep": {
			Status:      200,
			ContentType: "text/html",
			Body:        `<html><title>Deep</title><body>should not be reached</body></html>`,
		},
	}}
	index := newFakeIndex()

	engine := New(Options{StartURL: "http://a.test/", MaxDepth: 0, Workers: 2}, downloader, index)
	run(t, engine)

	assert.Len(t, index.docs, 1)
}

// run executes the engine with a generous timeout so a termination-detection
// regression fails the test instead of hanging the suite forever.
func run(t *testing.T, e *Engine) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("crawl did not terminate")
	}
}
