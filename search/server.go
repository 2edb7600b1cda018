// Package search implements the HTTP front-end: request decoding for
// GET /, GET /search, and POST /search, query tokenization shared in spirit
// (but not implementation) with the crawler's tokenizer, and HTML rendering
// of search results.
package search

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/unrolled/render"

	"github.com/iparadigms/searchengine/semaphore"
	"github.com/iparadigms/searchengine/store"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Index is the subset of the index store the front-end queries.
type Index interface {
	Search(terms []string, limit int) ([]store.SearchResult, error)
	Stats() (store.Stats, error)
}

// Options configures a Server.
type Options struct {
	Addr       string
	MaxResults int
	Threads    int
}

// Server is the request-per-connection HTTP search front-end.
type Server struct {
	opts    Options
	index   Index
	render  *render.Render
	limiter *semaphore.Semaphore
	log     *logrus.Entry
	http    *http.Server
}

// New builds a Server bound to opts.Addr, serving queries against index.
func New(opts Options, index Index) *Server {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 20
	}

	r := render.New(render.Options{
		Directory: "templates",
		Asset: func(name string) ([]byte, error) {
			return templateFS.ReadFile(name)
		},
		AssetNames: func() []string {
			entries, _ := templateFS.ReadDir("templates")
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, "templates/"+e.Name())
			}
			return names
		},
		Funcs: []template.FuncMap{{
			"statusText": http.StatusText,
		}},
	})

	s := &Server{
		opts:    opts,
		index:   index,
		render:  r,
		limiter: semaphore.New(opts.Threads),
		log:     logrus.WithField("component", "search"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/", s.handleSearchPage).Methods(http.MethodGet)
	router.HandleFunc("/search", s.handleSearchPage).Methods(http.MethodGet)
	router.HandleFunc("/search", s.handleResults).Methods(http.MethodPost)
	router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	s.http = &http.Server{
		Addr:    opts.Addr,
		Handler: s.boundedServerHeader(router),
	}
	s.http.SetKeepAlivesEnabled(false)

	return s
}

// boundedServerHeader wraps next so every response carries the
// Server/Connection headers from the external interfaces and so the
// number of concurrent in-flight handlers never exceeds opts.Threads —
// each accepted connection serves exactly one request, then the send
// side is closed (Connection: close, since net/http does not expose a
// raw per-socket shutdown the way the source's Beast-based server does).
func (s *Server) boundedServerHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.limiter.Acquire()
		defer s.limiter.Release()

		w.Header().Set("Server", "SearchEngine/1.0")
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Connection", "close")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.log.Infof("search front-end listening on %v", s.opts.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown ceases accepting new connections and waits briefly for
// in-flight requests to finish.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

type searchPageData struct {
	Query string
	Stats *store.Stats
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	query := decodeQuery(r.URL.RawQuery, false)

	data := searchPageData{Query: query}
	if stats, err := s.index.Stats(); err == nil {
		data.Stats = &stats
	} else {
		s.log.Debugf("failed to load stats: %v", err)
	}

	s.render.HTML(w, http.StatusOK, "search", data)
}

type resultsPageData struct {
	Query   string
	Count   int
	Results []store.SearchResult
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	query := decodeQuery(body, true)
	terms := tokenize(query)

	var results []store.SearchResult
	if len(terms) > 0 {
		results, err = s.index.Search(terms, s.opts.MaxResults)
		if err != nil {
			s.log.Errorf("search failed: %v", err)
			s.renderError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	s.render.HTML(w, http.StatusOK, "results", resultsPageData{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, http.StatusNotFound, "Page not found")
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.render.HTML(w, status, "error", map[string]string{"Message": message})
}

func readBody(r *http.Request) (string, error) {
	defer r.Body.Close()
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := r.Body.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return b.String(), nil
}
