package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zenstudy-backend/internal/models"
	"zenstudy-backend/internal/services"
)

type SpreadsheetImporter interface {
	ImportSpreadsheet(ctx context.Context, groupName string, r io.Reader) (*models.ImportResult, error)
}

type ImportHandler struct {
	importer    SpreadsheetImporter
	jobs        JobQueue
	storagePath string
	maxBytes    int64
	log         *zap.Logger
}

func NewImportHandler(importer SpreadsheetImporter, jobs JobQueue, storagePath string, maxBytes int64, log *zap.Logger) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &ImportHandler{
		importer:    importer,
		jobs:        jobs,
		storagePath: storagePath,
		maxBytes:    maxBytes,
		log:         log.Named("import_handler"),
	}
}

func (h *ImportHandler) enqueueGeneration(w http.ResponseWriter, r *http.Request, req models.GenerateVocabularyRequest) {
	config, _ := json.Marshal(req)
	job := &models.Job{
		ID:          uuid.New(),
		ClientID:    clientID(r),
		Type:        models.JobVocabularyImport,
		ReferenceID: req.Theme,
		ConfigJSON:  config,
		Status:      "pending",
		MaxRetries:  3,
	}
	if err := h.jobs.Enqueue(r.Context(), job); err != nil {
		handleServiceError(w, r, h.log, fmt.Errorf("enqueue vocabulary import: %w", err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
		"theme":  req.Theme,
	})
}

// Generate queues a themed vocabulary list for generation and import.
func (h *ImportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateVocabularyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SourcePath = ""

	if err := services.ValidateGenerateRequest(&req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.enqueueGeneration(w, r, req)
}

// Upload imports an .xlsx word list directly. A pdf, docx, txt or md document
// is stored and used as source text for a queued generation.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", fmt.Sprintf("Upload must be a multipart form under %d bytes", h.maxBytes), r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "file is required"}, r))
		return
	}
	defer file.Close()

	name := header.Filename
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case ext == ".xlsx":
		groupName := r.FormValue("group_name")
		if strings.TrimSpace(groupName) == "" {
			groupName = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		}
		res, err := h.importer.ImportSpreadsheet(r.Context(), groupName, file)
		if err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)

	case services.SupportedDocument(name):
		count, _ := strconv.Atoi(r.FormValue("count"))
		req := models.GenerateVocabularyRequest{
			Theme:     r.FormValue("theme"),
			JLPTLevel: r.FormValue("jlpt_level"),
			Count:     count,
		}
		if err := services.ValidateGenerateRequest(&req); err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}

		path, err := h.store(file, ext)
		if err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
		req.SourcePath = path
		h.enqueueGeneration(w, r, req)

	default:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "supported types are .xlsx, .pdf, .docx, .txt and .md"}, r))
	}
}

func (h *ImportHandler) store(src io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(h.storagePath, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}

	path := filepath.Join(h.storagePath, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}
