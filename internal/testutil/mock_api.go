// Package testutil provides testing utilities for the stage sync engine.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BasePath is the path prefix the mock serves the API under.
const BasePath = "/v1/"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock of the collection API for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	queryBodies       map[string][]string
	inFlight          int
	maxInFlight       int
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:    make(map[string]func(w http.ResponseWriter, r *http.Request)),
		queryBodies: make(map[string][]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.inFlight++
		if mock.inFlight > mock.maxInFlight {
			mock.maxInFlight = mock.inFlight
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		defer func() {
			mock.mu.Lock()
			mock.inFlight--
			mock.mu.Unlock()
		}()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the base URL clients should be configured with.
func (m *MockAPI) URL() string {
	return m.server.URL + BasePath
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.queryBodies = make(map[string][]string)
	m.maxInFlight = 0
}

// SetHandler sets a custom handler for a path relative to BasePath.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[BasePath+strings.TrimPrefix(path, "/")] = handler
}

// SetResponse configures a fixed response for a path relative to BasePath.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetQueryPages serves a collection split into the given pages. Page N
// links to page N+1 with the cursor "cursor-<N+1>".
func (m *MockAPI) SetQueryPages(collectionID string, pages ...[]string) {
	m.SetHandler(QueryPath(collectionID), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "invalid_json", "message": err.Error()})
			return
		}
		m.mu.Lock()
		m.queryBodies[collectionID] = append(m.queryBodies[collectionID], string(raw))
		m.mu.Unlock()

		var body struct {
			StartCursor *string `json:"start_cursor"`
		}
		_ = json.Unmarshal(raw, &body)

		index := 0
		if body.StartCursor != nil {
			n, err := strconv.Atoi(strings.TrimPrefix(*body.StartCursor, "cursor-"))
			if err != nil || n < 0 || n >= len(pages) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"code": "validation_error", "message": "bad cursor"})
				return
			}
			index = n
		}

		var entries []string
		if index < len(pages) {
			entries = pages[index]
		}
		results := make([]map[string]string, 0, len(entries))
		for _, id := range entries {
			results = append(results, map[string]string{"object": "page", "id": id})
		}

		hasMore := index < len(pages)-1
		var next *string
		if hasMore {
			cursor := fmt.Sprintf("cursor-%d", index+1)
			next = &cursor
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"object":      "list",
			"results":     results,
			"has_more":    hasMore,
			"next_cursor": next,
		})
	})
}

// SetNumber serves a number property.
func (m *MockAPI) SetNumber(recordID, fieldID string, value int32) {
	m.setJSON(PropertyPath(recordID, fieldID), map[string]any{"object": "property_item", "type": "number", "number": value})
}

// SetTitle serves a title property made of the given segments.
func (m *MockAPI) SetTitle(recordID, fieldID string, segments ...string) {
	results := make([]map[string]any, 0, len(segments))
	for _, text := range segments {
		results = append(results, map[string]any{
			"object": "property_item",
			"type":   "title",
			"title":  map[string]any{"type": "text", "plain_text": text},
		})
	}
	m.setJSON(PropertyPath(recordID, fieldID), map[string]any{"object": "list", "results": results, "has_more": false})
}

// SetTags serves a multi-select property.
func (m *MockAPI) SetTags(recordID, fieldID string, tags ...string) {
	options := make([]map[string]string, 0, len(tags))
	for _, name := range tags {
		options = append(options, map[string]string{"name": name})
	}
	m.setJSON(PropertyPath(recordID, fieldID), map[string]any{"object": "property_item", "type": "multi_select", "multi_select": options})
}

// SetStage serves all three properties of a record under the default field ids.
func (m *MockAPI) SetStage(recordID string, number int32, title string, tags ...string) {
	m.SetNumber(recordID, "ID", number)
	m.SetTitle(recordID, "Name", title)
	m.SetTags(recordID, "Tags", tags...)
}

// QueryBodies returns the raw request bodies sent to a collection's query endpoint.
func (m *MockAPI) QueryBodies(collectionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.queryBodies[collectionID]...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// GetMaxInFlight returns the highest number of concurrently served requests.
func (m *MockAPI) GetMaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInFlight
}

func (m *MockAPI) setJSON(path string, payload any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, payload)
	})
}

// defaultHandler answers unknown paths the way the API answers unknown objects.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"object":  "error",
		"code":    "object_not_found",
		"message": "Could not find " + r.URL.Path,
	})
}

// QueryPath returns the query path of a collection relative to BasePath.
func QueryPath(collectionID string) string {
	return "databases/" + collectionID + "/query"
}

// PropertyPath returns the property path of a record relative to BasePath.
func PropertyPath(recordID, fieldID string) string {
	return "pages/" + recordID + "/properties/" + fieldID
}

// NewErrorResponse creates a plain-text error response.
func NewErrorResponse(status int, body string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
}

// NewJSONResponse creates a 200 OK response with a raw JSON body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
