package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Hughclaw18/Enterprise-Rag/internal/index"
	"github.com/Hughclaw18/Enterprise-Rag/internal/pipeline"
	"github.com/Hughclaw18/Enterprise-Rag/internal/provider"
	"github.com/Hughclaw18/Enterprise-Rag/internal/store"
	"github.com/Hughclaw18/Enterprise-Rag/internal/transcripts"
)

// Answerer is the query pipeline as the handlers see it.
type Answerer interface {
	Answer(ctx context.Context, question string) (*pipeline.Answer, error)
}

type APIHandler struct {
	answerer  Answerer
	store     *store.SQLiteStore
	uploadDir string
}

func NewAPIHandler(answerer Answerer, st *store.SQLiteStore, uploadDir string) *APIHandler {
	return &APIHandler{answerer: answerer, store: st, uploadDir: uploadDir}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type QueryRequest struct {
	Text string `json:"text"`
}

type QueryResponse struct {
	Response string                 `json:"response"`
	Sources  []transcripts.Metadata `json:"sources,omitempty"`
	Scores   any                    `json:"scores,omitempty"`
}

// QueryHandler answers one question over the indexed corpus. The endpoint is
// deliberately unauthenticated; only the chat history routes require a login.
func (h *APIHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "Query text cannot be empty")
		return
	}

	answer, err := h.answerer.Answer(r.Context(), req.Text)
	if err != nil {
		h.writeAnswerError(w, req.Text, err)
		return
	}

	resp := QueryResponse{Response: answer.Text}
	for _, src := range answer.Sources {
		resp.Sources = append(resp.Sources, src.Metadata)
	}
	if answer.Scores != nil {
		resp.Scores = answer.Scores
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeAnswerError maps pipeline failures onto user-actionable responses: a
// missing or stale index tells the operator to rebuild, an upstream fault is
// a bad gateway, everything else is internal.
func (h *APIHandler) writeAnswerError(w http.ResponseWriter, query string, err error) {
	log.Printf("Query failed (%.60q): %v", query, err)

	var mismatch *index.MismatchError
	var provErr *provider.Error
	switch {
	case errors.Is(err, index.ErrNotFound):
		writeJSONError(w, http.StatusServiceUnavailable,
			"The vector index has not been built yet. Build it first by running the server with -build-index.")
	case errors.Is(err, index.ErrCorrupt), errors.As(err, &mismatch):
		writeJSONError(w, http.StatusServiceUnavailable,
			"The vector index is unusable and must be rebuilt: "+err.Error())
	case errors.As(err, &provErr):
		writeJSONError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// UploadDocumentHandler stores an uploaded transcript under its original
// filename in the upload directory, creating the directory if absent. The
// file is not indexed until the next index build.
func (h *APIHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Missing file in multipart form: "+err.Error())
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		log.Printf("Failed to create upload dir %s: %v", h.uploadDir, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"detail":  err.Error(),
			"message": "An error occurred during file processing",
		})
		return
	}

	// filepath.Base strips any path components a client smuggles into the
	// filename.
	name := filepath.Base(header.Filename)
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err == nil {
		_, err = io.Copy(dst, file)
		if closeErr := dst.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		log.Printf("Failed to store upload %s: %v", name, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"detail":  err.Error(),
			"message": "An error occurred during file processing",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("File '%s' uploaded successfully.", name),
	})
}
