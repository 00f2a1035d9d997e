package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
	"github.com/deploymenttheory/go-gtm-composer/internal/logger"
	"github.com/deploymenttheory/go-gtm-composer/internal/pipeline"
)

// Options configure the upload API.
type Options struct {
	Addr        string
	MaxUploadMB int64

	// Defaults applied to every job; per-request form fields override
	// the container id and template type.
	AccountID          string
	ContainerID        string
	ServiceAccountFile string
	BaseURL            string
	WorkspacePrefix    string

	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerMinute int

	// Connect overrides client construction in tests.
	Connect pipeline.ClientFactory
}

// Server exposes the pipeline over HTTP: POST /upload takes a multipart
// input file and replays it into Tag Manager, GET /healthz reports
// liveness.
type Server struct {
	opts Options
	mux  *http.ServeMux
}

// uploadResponse mirrors what the web frontend consumes.
type uploadResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode,omitempty"`
	Steps     []string `json:"steps,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 16
	}

	s := &Server{opts: opts, mux: http.NewServeMux()}
	s.mux.HandleFunc("/upload", s.handleUpload)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks until the context is cancelled or the listener
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogInfo("Upload API listening", map[string]interface{}{
			"addr": s.opts.Addr,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(s.opts.MaxUploadMB << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Status:    "error",
			Message:   "could not read upload: " + err.Error(),
			ErrorCode: "BAD_REQUEST",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Status:    "error",
			Message:   "missing 'file' field",
			ErrorCode: "BAD_REQUEST",
		})
		return
	}
	defer file.Close()

	containerID := r.FormValue("container_id")
	if containerID == "" {
		containerID = s.opts.ContainerID
	}
	if containerID == "" && s.opts.AccountID == "" {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Status:    "error",
			Message:   "no container id provided",
			ErrorCode: "MISSING_CONTAINER_ID",
		})
		return
	}

	path, err := saveUpload(file, header.Filename)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, uploadResponse{
			Status:    "error",
			Message:   "could not store upload: " + err.Error(),
			ErrorCode: "UNKNOWN_ERROR",
		})
		return
	}
	defer os.Remove(path)

	opts := pipeline.JobOptions{
		InputPath:          path,
		TemplateType:       r.FormValue("template_type"),
		DryRun:             parseBool(r.FormValue("dry_run")),
		AccountID:          s.opts.AccountID,
		ContainerID:        containerID,
		ServiceAccountFile: s.opts.ServiceAccountFile,
		BaseURL:            s.opts.BaseURL,
		WorkspacePrefix:    s.opts.WorkspacePrefix,
		MaxRetries:         s.opts.MaxRetries,
		RetryDelay:         s.opts.RetryDelay,
		RequestsPerMinute:  s.opts.RequestsPerMinute,
		Connect:            s.opts.Connect,
	}

	result, err := pipeline.ExecuteJob(r.Context(), opts)
	writeJSON(w, httpStatus(result, err), buildResponse(result, err))
}

// saveUpload writes the multipart part to a temp file, keeping the
// original extension so the parser can pick a format.
func saveUpload(file io.Reader, name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = "upload.json"
	}

	f, err := os.CreateTemp("", "gtm-upload-*-"+base)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, file); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func buildResponse(result *pipeline.Result, err error) uploadResponse {
	if result != nil {
		resp := uploadResponse{
			Status: strings.ToLower(string(result.Status)),
			Steps:  pipeline.StepLines(result),
		}
		switch result.Status {
		case pipeline.StatusValidationFailed:
			resp.Status = "error"
			resp.ErrorCode = "VALIDATION_FAILED"
			resp.Message = fmt.Sprintf("input failed validation with %d error(s)", len(result.ValidationErrors))
			for _, verr := range result.ValidationErrors {
				resp.Errors = append(resp.Errors, verr.Error())
			}
		case pipeline.StatusDryRun:
			resp.Message = "dry run complete, nothing was created"
		case pipeline.StatusFailed:
			resp.Status = "error"
			resp.ErrorCode = errorCode(result.FatalErr)
			resp.Message = "batch creation failed"
			if result.FatalErr != nil {
				resp.Message = result.FatalErr.Error()
			}
		case pipeline.StatusPartial:
			created, skipped, failed := result.Totals()
			resp.Message = fmt.Sprintf("completed with problems: %d created, %d skipped, %d failed",
				created, skipped, failed)
		default:
			created, _, _ := result.Totals()
			resp.Message = fmt.Sprintf("created %d resources in workspace %s", created, result.WorkspaceName)
		}
		return resp
	}

	return uploadResponse{
		Status:    "error",
		Message:   err.Error(),
		ErrorCode: errorCode(err),
	}
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, gtmerr.ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, gtmerr.ErrContainerNotFound):
		return "CONTAINER_NOT_FOUND"
	case errors.Is(err, gtmerr.ErrAuth):
		return "AUTH_FAILED"
	case errors.Is(err, gtmerr.ErrConfigInvalid):
		return "MISSING_CONTAINER_ID"
	case errors.Is(err, gtmerr.ErrFileNotFound),
		errors.Is(err, gtmerr.ErrUnsupportedFormat),
		errors.Is(err, gtmerr.ErrParse):
		return "PARSE_FAILED"
	default:
		return "UNKNOWN_ERROR"
	}
}

func httpStatus(result *pipeline.Result, err error) int {
	if result != nil {
		switch result.Status {
		case pipeline.StatusValidationFailed:
			return http.StatusBadRequest
		case pipeline.StatusFailed:
			return http.StatusBadGateway
		default:
			return http.StatusOK
		}
	}

	switch errorCode(err) {
	case "PARSE_FAILED", "MISSING_CONTAINER_ID":
		return http.StatusBadRequest
	case "AUTH_FAILED":
		return http.StatusUnauthorized
	case "CONTAINER_NOT_FOUND":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.LogWarn("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
