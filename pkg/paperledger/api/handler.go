// Package api exposes the ledger over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

// DefaultMaxUploadBytes bounds the body of a batch upload.
const DefaultMaxUploadBytes = 512 << 20

// Handler serves documents, works, provenance and batch uploads.
type Handler struct {
	service        paperledger.Service
	logger         *zap.Logger
	maxUploadBytes int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithMaxUploadBytes caps the size of a batch upload request.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

func NewHandler(service paperledger.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:        service,
		logger:         zap.NewNop(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router for the v1 API
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/batches", h.CreateBatch)

	r.Get("/documents", h.GetDocumentByHash)
	r.Get("/documents/{id}", h.GetDocument)
	r.Get("/documents/{id}/content", h.GetDocumentContent)

	r.Get("/works/orphans", h.ListOrphanWorks)
	r.Get("/works/{id}", h.GetWork)
	r.Post("/works/{id}/relink", h.RelinkDocuments)
	r.Put("/works/{id}/primary", h.SetPrimaryDocument)
	r.Get("/works/{id}/oddpub", h.ListOddpubMetrics)

	r.Get("/provenance/{id}", h.GetProvenance)
	return r
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WorkResponse is a work with the documents currently linked to it.
type WorkResponse struct {
	*paperledger.Work
	Documents []*paperledger.Document `json:"documents"`
}

// RelinkRequest lists the documents to move onto the work in the path.
type RelinkRequest struct {
	DocumentIDs []int64 `json:"document_ids"`
}

// SetPrimaryRequest names the document to mark as a work's primary copy.
type SetPrimaryRequest struct {
	DocumentID int64 `json:"document_id"`
}

// BatchResponse is the synchronous result of a batch upload. Error is set
// when some items failed to persist; the summary is still complete.
type BatchResponse struct {
	*paperledger.BatchSummary
	Error string `json:"error,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: code, Message: message})
}

// writeServiceError maps a service error onto a status code.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, paperledger.ErrDocumentNotFound),
		errors.Is(err, paperledger.ErrWorkNotFound),
		errors.Is(err, paperledger.ErrProvenanceNotFound),
		errors.Is(err, paperledger.ErrMetricsNotFound),
		errors.Is(err, paperledger.ErrObjectNotFound):
		h.writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, paperledger.ErrDocumentNotLinked):
		h.writeError(w, r, http.StatusConflict, "document_not_linked", err.Error())
	case errors.Is(err, paperledger.ErrInvalidProvenance):
		h.writeError(w, r, http.StatusBadRequest, "invalid_provenance", err.Error())
	case paperledger.IsConfigurationError(err):
		h.writeError(w, r, http.StatusServiceUnavailable, "not_configured", err.Error())
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "internal_error", "an internal server error occurred")
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "invalid_id", fmt.Sprintf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}

// CreateBatch ingests the PDFs of a multipart upload as one batch. Files are
// read from the "files" field; "comment" and "personnel" feed provenance.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.writeError(w, r, http.StatusBadRequest, "invalid_upload", "no files in field \"files\"")
		return
	}

	staging, err := os.MkdirTemp("", "paperledger-batch-*")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer os.RemoveAll(staging)

	paths := make([]string, 0, len(files))
	for i, fh := range files {
		// One directory per part keeps the original basename, which becomes the blob key.
		dir := filepath.Join(staging, strconv.Itoa(i))
		if err := os.Mkdir(dir, 0o700); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		name := filepath.Base(fh.Filename)
		if name == "." || name == string(filepath.Separator) {
			name = "upload.pdf"
		}
		path := filepath.Join(dir, name)
		if err := savePart(fh, path); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		paths = append(paths, path)
	}

	summary, err := h.service.IngestFiles(r.Context(), paths, paperledger.RunOptions{
		Comment:   r.FormValue("comment"),
		Personnel: r.FormValue("personnel"),
	})
	if summary == nil {
		h.writeServiceError(w, r, err)
		return
	}
	// Report client-side names instead of staging paths.
	for i, p := range summary.FailedFiles {
		summary.FailedFiles[i] = filepath.Base(p)
	}

	resp := BatchResponse{BatchSummary: summary}
	status := http.StatusCreated
	if summary.NewDocuments == 0 {
		status = http.StatusOK
	}
	if err != nil {
		h.logger.Error("batch completed with errors", zap.Error(err))
		resp.Error = err.Error()
		status = http.StatusMultiStatus
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func savePart(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// GetDocument returns a document by id
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, doc)
}

// GetDocumentByHash returns the document whose content digest is ?hash=
// GetDocumentContent streams the stored PDF of a document.
func (h *Handler) GetDocumentContent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	doc, rc, err := h.service.OpenDocumentContent(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", paperledger.PDFMimeType)
	w.Header().Set("ETag", `"`+doc.HashData+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("document download interrupted", zap.Int64("document_id", id), zap.Error(err))
	}
}

func (h *Handler) GetDocumentByHash(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("hash")
	if len(hash) != paperledger.DigestSize {
		h.writeError(w, r, http.StatusBadRequest, "invalid_hash", "hash must be a hex SHA-256 digest")
		return
	}
	doc, err := h.service.GetDocumentByHash(r.Context(), hash)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, doc)
}

// GetWork returns a work and its documents
func (h *Handler) GetWork(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	work, err := h.service.GetWork(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	docs, err := h.service.ListDocumentsByWork(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*paperledger.Document{}
	}
	render.JSON(w, r, WorkResponse{Work: work, Documents: docs})
}

// RelinkDocuments moves documents onto the work in the path
func (h *Handler) RelinkDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req RelinkRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.DocumentIDs) == 0 {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", "document_ids is required")
		return
	}

	result, err := h.service.Relink(r.Context(), req.DocumentIDs, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// SetPrimaryDocument marks one of the work's documents as primary
func (h *Handler) SetPrimaryDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req SetPrimaryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.DocumentID <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", "document_id is required")
		return
	}

	work, err := h.service.SetPrimaryDocument(r.Context(), id, req.DocumentID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, work)
}

// ListOrphanWorks returns works whose documents were all relinked elsewhere
func (h *Handler) ListOrphanWorks(w http.ResponseWriter, r *http.Request) {
	works, err := h.service.ListOrphanWorks(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if works == nil {
		works = []*paperledger.Work{}
	}
	render.JSON(w, r, works)
}

// ListOddpubMetrics returns the analyzer results recorded for a work
func (h *Handler) ListOddpubMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.GetWork(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	metrics, err := h.service.ListOddpubMetricsByWork(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if metrics == nil {
		metrics = []*paperledger.OddpubMetrics{}
	}
	render.JSON(w, r, metrics)
}

// GetProvenance returns a provenance record by id
func (h *Handler) GetProvenance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	prov, err := h.service.GetProvenance(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, prov)
}
