package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/viant/brain/brain"
)

const maxBodyBytes = 1 << 20

// AddRequest is the JSON body for POST /add. The text fields are pointers so
// an omitted field can be told apart from an empty one.
type AddRequest struct {
	Problem     *string  `json:"problem"`
	Solution    *string  `json:"solution"`
	Explanation *string  `json:"explanation"`
	Tags        []string `json:"tags,omitempty"`
}

type AddResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

type SearchResponse struct {
	Results []brain.SearchResult `json:"results"`
}

type rootResponse struct {
	Message string `json:"message"`
	Ready   bool   `json:"ready"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{Message: "Second Brain API is running.", Ready: s.isReady()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.isReady() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Problem == nil || req.Solution == nil || req.Explanation == nil {
		writeError(w, http.StatusBadRequest, "problem, solution and explanation are required")
		return
	}
	id, err := s.notes.AddNote(r.Context(), brain.NoteInput{
		Problem:     *req.Problem,
		Solution:    *req.Solution,
		Explanation: *req.Explanation,
		Tags:        req.Tags,
	})
	if err != nil {
		s.fail(w, err, "add note")
		return
	}
	writeJSON(w, http.StatusOK, AddResponse{Status: "success", ID: id, Message: "Note added successfully."})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("query") {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	limit := brain.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	if limit > s.opts.MaxLimit {
		limit = s.opts.MaxLimit
	}
	results, err := s.notes.Search(r.Context(), q.Get("query"), limit)
	if err != nil {
		s.fail(w, err, "search notes")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	result, err := s.notes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err, "get note")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
