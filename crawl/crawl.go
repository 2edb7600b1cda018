// Package crawl implements the bounded breadth-first crawl engine: a shared
// work queue, a shared visited set, and a pool of worker goroutines that pull
// tasks, fetch pages, index them, and enqueue discovered links.
package crawl

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iparadigms/searchengine/fetch"
	"github.com/iparadigms/searchengine/htmlx"
)

// pollInterval mirrors the source engine's 100ms condition-variable wait
// timeout: workers waiting on an empty queue re-check their termination
// predicate this often instead of blocking forever.
const pollInterval = 100 * time.Millisecond

// Downloader is the subset of the fetcher contract the engine needs.
type Downloader interface {
	Download(url string) fetch.Result
}

// Index is the subset of the index store the engine needs to record a
// crawled page.
type Index interface {
	AddDocument(url, title, content string) (int64, error)
	ReplaceDocumentWords(docID int64, freqs map[string]int) error
}

// task is an in-memory (url, depth) pair waiting to be processed.
type task struct {
	url   string
	depth int
}

// Options configures an Engine.
type Options struct {
	StartURL string
	MaxDepth int
	Workers  int
	Delay    time.Duration
}

// Engine runs one bounded crawl. It is single-use: construct with New and
// call Run once.
type Engine struct {
	opts     Options
	fetcher  Downloader
	index    Index
	log      *logrus.Entry

	queueMu sync.Mutex
	cond    *sync.Cond
	queue   []task
	running bool
	idle    int

	visitedMu sync.Mutex
	visited   map[string]bool

	processed int64
	errors    int64
	statsMu   sync.Mutex
}

// New builds an Engine ready to crawl from opts.StartURL.
func New(opts Options, fetcher Downloader, index Index) *Engine {
	e := &Engine{
		opts:    opts,
		fetcher: fetcher,
		index:   index,
		log:     logrus.WithField("component", "crawl"),
		visited: make(map[string]bool),
		running: true,
	}
	e.cond = sync.NewCond(&e.queueMu)
	return e
}

// Stats reports the crawl's processed and error counts, safe to call
// concurrently with Run.
type Stats struct {
	Processed int64
	Errors    int64
	Visited   int
}

func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.visitedMu.Lock()
	visited := len(e.visited)
	e.visitedMu.Unlock()
	return Stats{Processed: e.processed, Errors: e.errors, Visited: visited}
}

// Run spawns the worker pool, seeds the queue with the start URL, and
// blocks until every worker has exited. Termination strategy (b): the
// worker that observes all W workers simultaneously idle with an empty
// queue flips running false and wakes the rest.
func (e *Engine) Run() {
	e.log.Infof("starting crawl: start_url=%v max_depth=%v workers=%v delay=%v",
		e.opts.StartURL, e.opts.MaxDepth, e.opts.Workers, e.opts.Delay)

	// Seed the queue before any worker starts: workerLoop's idle-termination
	// branch only fires on an empty queue, so if a worker reached it before
	// the seed existed, AddUrlToQueue would see running==false and reject
	// the seed outright, leaving the crawl a silent no-op.
	e.AddUrlToQueue(e.opts.StartURL, 0)

	var wg sync.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e.workerLoop(id)
		}(i)
	}

	go e.pollTicker()

	wg.Wait()
	stats := e.Stats()
	e.log.Infof("crawl finished: processed=%v errors=%v visited=%v",
		stats.Processed, stats.Errors, stats.Visited)
}

// pollTicker periodically broadcasts the queue condition so idle workers
// re-check their termination predicate, emulating a timed condition wait.
func (e *Engine) pollTicker() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for range ticker.C {
		e.queueMu.Lock()
		running := e.running
		e.queueMu.Unlock()
		if !running {
			return
		}
		e.cond.Broadcast()
	}
}

func (e *Engine) workerLoop(id int) {
	log := e.log.WithField("worker", id)
	log.Debug("worker started")
	for {
		e.queueMu.Lock()
		for len(e.queue) == 0 && e.running {
			e.idle++
			if e.idle == e.opts.Workers {
				// Last worker to go idle with nothing left to do: stop the crawl.
				e.running = false
				e.idle--
				e.cond.Broadcast()
				e.queueMu.Unlock()
				log.Debug("worker finished")
				return
			}
			e.cond.Wait()
			e.idle--
		}

		if !e.running && len(e.queue) == 0 {
			e.queueMu.Unlock()
			log.Debug("worker finished")
			return
		}

		t := e.queue[0]
		e.queue = e.queue[1:]
		e.queueMu.Unlock()

		e.process(t.url, t.depth)
	}
}

// process performs the per-task steps of §4.D: validate depth, dedupe
// against the visited set, download, extract, index, enqueue links.
func (e *Engine) process(url string, depth int) {
	if depth > e.opts.MaxDepth {
		return
	}

	e.visitedMu.Lock()
	if e.visited[url] {
		e.visitedMu.Unlock()
		return
	}
	e.visited[url] = true
	e.visitedMu.Unlock()

	result := e.fetcher.Download(url)
	if result.Status != 200 {
		e.incErrors()
		e.log.Debugf("download failed for %v: status=%v", url, result.Status)
		return
	}
	if !strings.Contains(result.ContentType, "text/html") {
		e.log.Debugf("skipping non-HTML content for %v: content_type=%v", url, result.ContentType)
		return
	}

	title := htmlx.GetTitle(result.Body)
	if title == "" {
		title = url
	}
	text := htmlx.ExtractText(result.Body)
	words := htmlx.ExtractWords(text)
	links := htmlx.ExtractLinks(result.Body, url)

	docID, err := e.index.AddDocument(url, title, text)
	if err != nil {
		e.incErrors()
		e.log.Errorf("failed to add document for %v: %v", url, err)
		return
	}

	freqs := make(map[string]int)
	for _, w := range words {
		freqs[w]++
	}
	if err := e.index.ReplaceDocumentWords(docID, freqs); err != nil {
		e.incErrors()
		e.log.Errorf("failed to index words for %v: %v", url, err)
		return
	}
	e.incProcessed()
	e.log.Debugf("indexed %v: %v words, %v links", url, len(freqs), len(links))

	if depth < e.opts.MaxDepth {
		for _, link := range links {
			e.AddUrlToQueue(link, depth+1)
		}
	}

	if e.opts.Delay > 0 {
		time.Sleep(e.opts.Delay)
	}
}

// AddUrlToQueue pushes (url, depth) onto the queue, subject to the
// rejection rules: not running, depth exceeded, invalid URL, already
// visited. It performs no insertion into the visited set — the worker that
// dequeues does that.
func (e *Engine) AddUrlToQueue(url string, depth int) bool {
	e.queueMu.Lock()
	running := e.running
	e.queueMu.Unlock()
	if !running || depth > e.opts.MaxDepth {
		return false
	}
	if !fetch.IsValidURL(url) {
		return false
	}

	e.visitedMu.Lock()
	alreadyVisited := e.visited[url]
	e.visitedMu.Unlock()
	if alreadyVisited {
		return false
	}

	e.queueMu.Lock()
	e.queue = append(e.queue, task{url: url, depth: depth})
	e.queueMu.Unlock()
	e.cond.Signal()
	return true
}

func (e *Engine) incProcessed() {
	e.statsMu.Lock()
	e.processed++
	e.statsMu.Unlock()
}

func (e *Engine) incErrors() {
	e.statsMu.Lock()
	e.errors++
	e.statsMu.Unlock()
}
