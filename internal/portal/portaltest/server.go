// SPDX-License-Identifier: MPL-2.0

// Package portaltest provides an in-process fake of the Factorio mod portal
// for tests.
package portaltest

import (
	"crypto/sha1" //nolint:gosec // The portal publishes SHA-1 digests.
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	// Username and Token are the credentials the fake accepts for downloads.
	Username = "modtorio-test"
	Token    = "s3cr3t"
)

// Route names accepted by Server.Requests.
const (
	RouteFetchMod = "fetch_mod"
	RouteBatch    = "batch"
	RouteDownload = "download"
	RouteFile     = "file"
)

type (
	// Mod is a mod the fake portal serves.
	Mod struct {
		Name        string
		Owner       string
		Title       string
		Summary     string
		Description string
		Changelog   string
		Homepage    string
		Releases    []Release
	}

	// Release is one published version. FileName defaults to
	// "<name>_<version>.zip" and SHA1 to the digest of Archive.
	Release struct {
		Version         string
		FactorioVersion string
		Dependencies    []string
		Archive         []byte
		FileName        string
		SHA1            string
		ReleasedAt      time.Time
	}

	// Server is a fake mod portal backed by httptest.Server.
	Server struct {
		*httptest.Server

		// PageSize limits batch responses to this many results per page.
		// Zero returns every result on one page.
		PageSize int

		mu       sync.Mutex
		mods     map[string]Mod
		files    map[string][]byte
		locators map[string]string // locator -> file name
		requests map[string]int
		failNext int
		failCode int
	}
)

// New starts a fake portal that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		mods:     make(map[string]Mod),
		files:    make(map[string][]byte),
		locators: make(map[string]string),
		requests: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.injectFailures)
	r.Get("/api/mods/{name}/full", s.handleFetchMod)
	r.Get("/api/mods", s.handleBatch)
	r.Get("/download/{name}/{locator}", s.handleDownload)
	r.Get("/files/{file}", s.handleFile)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddMod publishes m, replacing any mod with the same name.
func (s *Server) AddMod(m Mod) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range m.Releases {
		rel := &m.Releases[i]
		if rel.FileName == "" {
			rel.FileName = fmt.Sprintf("%s_%s.zip", m.Name, rel.Version)
		}
		if rel.SHA1 == "" {
			rel.SHA1 = Digest(rel.Archive)
		}
		if rel.ReleasedAt.IsZero() {
			rel.ReleasedAt = time.Date(2020, 1, 1+i, 0, 0, 0, 0, time.UTC)
		}
		s.files[rel.FileName] = rel.Archive
		s.locators[Locator(m.Name, rel.Version)] = rel.FileName
	}
	s.mods[m.Name] = m
}

// Tamper makes the fake serve bytes for fileName that no longer match its
// published digest.
func (s *Server) Tamper(fileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[fileName] = append(append([]byte(nil), s.files[fileName]...), []byte("tampered")...)
}

// FailNext makes the next n requests fail with status.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failNext = n
	s.failCode = status
}

// Requests returns how many requests hit route.
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[route]
}

// Locator returns the download locator the fake assigns to a release.
func Locator(name, ver string) string {
	sum := sha1.Sum([]byte(name + "@" + ver)) //nolint:gosec // Identifier only.
	return hex.EncodeToString(sum[:12])
}

// Digest returns the hex SHA-1 digest of data.
func Digest(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec // The portal publishes SHA-1 digests.
	return hex.EncodeToString(sum[:])
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		fail := s.failNext > 0
		code := s.failCode
		if fail {
			s.failNext--
		}
		s.mu.Unlock()

		if fail {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) count(route string) {
	s.mu.Lock()
	s.requests[route]++
	s.mu.Unlock()
}

func (s *Server) handleFetchMod(w http.ResponseWriter, r *http.Request) {
	s.count(RouteFetchMod)

	s.mu.Lock()
	m, ok := s.mods[chi.URLParam(r, "name")]
	s.mu.Unlock()

	if !ok {
		http.Error(w, `{"message":"Mod not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, toWire(m))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	s.count(RouteBatch)

	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	var results []wireMod
	s.mu.Lock()
	for name := range strings.SplitSeq(q.Get("namelist"), ",") {
		if m, ok := s.mods[name]; ok {
			results = append(results, toWire(m))
		}
	}
	pageSize := s.PageSize
	s.mu.Unlock()

	if pageSize <= 0 {
		pageSize = max(len(results), 1)
	}
	pageCount := max((len(results)+pageSize-1)/pageSize, 1)

	start := min((page-1)*pageSize, len(results))
	end := min(start+pageSize, len(results))

	var next *string
	if page < pageCount {
		nq := r.URL.Query()
		nq.Set("page", strconv.Itoa(page+1))
		u := s.URL + "/api/mods?" + nq.Encode()
		next = &u
	}

	writeJSON(w, wirePage{
		Pagination: wirePagination{
			Count:     len(results),
			Page:      page,
			PageCount: pageCount,
			PageSize:  pageSize,
			Links:     wireLinks{Next: next},
		},
		Results: results[start:end],
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.count(RouteDownload)

	q := r.URL.Query()
	if q.Get("username") != Username || q.Get("token") != Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	file, ok := s.locators[chi.URLParam(r, "locator")]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/files/"+url.PathEscape(file), http.StatusFound)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	s.count(RouteFile)

	s.mu.Lock()
	data, ok := s.files[chi.URLParam(r, "file")]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
