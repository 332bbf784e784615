package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"living-population/internal/models"
	"living-population/internal/pipeline"
	"living-population/internal/regions"
	"living-population/internal/services"
	"living-population/pkg/logging"
	"living-population/pkg/metrics"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HealthChecker is implemented by stores the service depends on
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Options tunes request handling
type Options struct {
	MaxUploadBytes int64
	PreviewRows    int
	OutputPrefix   string
}

// PopulationHandler handles the merge, preview and region endpoints
type PopulationHandler struct {
	mergeService   *services.MergeService
	exportService  *services.ExportService
	summaryService *services.SummaryService
	regionService  *services.RegionService
	health         HealthChecker
	opts           Options
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewPopulationHandler creates a new handler. health may be nil when no
// store is configured.
func NewPopulationHandler(
	mergeService *services.MergeService,
	exportService *services.ExportService,
	summaryService *services.SummaryService,
	regionService *services.RegionService,
	health HealthChecker,
	opts Options,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *PopulationHandler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 512 << 20
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	if opts.OutputPrefix == "" {
		opts.OutputPrefix = "merged"
	}
	return &PopulationHandler{
		mergeService:   mergeService,
		exportService:  exportService,
		summaryService: summaryService,
		regionService:  regionService,
		health:         health,
		opts:           opts,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Code    int      `json:"code"`
	Details []string `json:"details,omitempty"`
}

// ReportResponse describes a merge without the workbook
type ReportResponse struct {
	RequestID  string                 `json:"request_id"`
	Shape      string                 `json:"shape"`
	Filter     string                 `json:"filter"`
	DurationMS int64                  `json:"duration_ms"`
	Succeeded  int                    `json:"succeeded"`
	Failed     int                    `json:"failed"`
	Files      []services.FileOutcome `json:"files"`
	Summary    *services.Summary      `json:"summary"`
}

// PreviewResponse holds one preview per uploaded file
type PreviewResponse struct {
	Files []PreviewItem `json:"files"`
}

// PreviewItem is the preview of one file or the reason it failed
type PreviewItem struct {
	*pipeline.PreviewResult
	Filename string `json:"filename"`
	Error    string `json:"error,omitempty"`
}

// Merge handles POST /api/merge and returns the merged workbook
func (h *PopulationHandler) Merge(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/merge"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	result, err := h.runMerge(w, r)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	var body bytes.Buffer
	if err := h.exportService.WriteWorkbook(ctx, &body, result.Table); err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	name := h.exportService.FileName(h.opts.OutputPrefix, time.Now())
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.Header().Set("X-Merge-Request-Id", result.RequestID)
	w.Header().Set("X-Merge-Shape", result.Shape.Name)
	w.Header().Set("X-Merge-Rows", strconv.Itoa(result.Table.Len()))
	w.Header().Set("X-Merge-Files-Succeeded", strconv.Itoa(result.Succeeded()))
	w.Header().Set("X-Merge-Files-Failed", strconv.Itoa(result.Failed()))
	w.WriteHeader(http.StatusOK)

	if _, err := body.WriteTo(w); err != nil {
		h.logger.Warn(ctx, "[API_MERGE_WRITE_ERROR] Client went away during download", logging.Fields{
			"request_id": result.RequestID,
			"error":      err.Error(),
		})
		h.metrics.RecordAPIError("write_error", endpoint)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
}

// MergeReport handles POST /api/merge/report
func (h *PopulationHandler) MergeReport(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/merge/report"
	defer h.observe(endpoint, time.Now())

	result, err := h.runMerge(w, r)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	response := ReportResponse{
		RequestID:  result.RequestID,
		Shape:      result.Shape.Name,
		Filter:     result.Filter.String(),
		DurationMS: result.Duration.Milliseconds(),
		Succeeded:  result.Succeeded(),
		Failed:     result.Failed(),
		Files:      result.Outcomes,
		Summary:    h.summaryService.Summarize(result.Table),
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// Preview handles POST /api/preview
func (h *PopulationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/preview"
	defer h.observe(endpoint, time.Now())

	files, err := h.readUpload(w, r)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	n := h.opts.PreviewRows
	if s := r.FormValue("rows"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			n = v
		}
	}

	response := PreviewResponse{Files: make([]PreviewItem, 0, len(files))}
	for _, f := range files {
		item := PreviewItem{Filename: f.Name}
		preview, err := pipeline.Preview(f.Name, f.Content, n, h.mergeService.Decoders())
		if err != nil {
			item.Error = err.Error()
		} else {
			item.PreviewResult = preview
		}
		response.Files = append(response.Files, item)
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// Districts handles GET /api/regions/districts
func (h *PopulationHandler) Districts(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/regions/districts"
	defer h.observe(endpoint, time.Now())

	response := map[string]interface{}{
		"all":       regions.AllDistricts,
		"districts": h.regionService.Districts(),
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// SubDistricts handles GET /api/regions/districts/{district}
func (h *PopulationHandler) SubDistricts(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/regions/districts/{district}"
	defer h.observe(endpoint, time.Now())

	district := mux.Vars(r)["district"]
	subs, err := h.regionService.SubDistricts(district)
	if err != nil {
		h.handleError(w, r, endpoint, err)
		return
	}

	response := map[string]interface{}{
		"district":      district,
		"sub_districts": subs,
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// Describe handles GET /api/regions/describe?code=...
func (h *PopulationHandler) Describe(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/regions/describe"
	defer h.observe(endpoint, time.Now())

	codes := models.ParseFilterSpec(r.URL.Query().Get("codes")).Prefixes()
	codes = append(codes, r.URL.Query()["code"]...)
	if len(codes) == 0 {
		h.handleError(w, r, endpoint, &models.ValidationError{Field: "code", Message: "at least one code is required"})
		return
	}

	response := map[string]interface{}{
		"regions": h.regionService.Describe(codes),
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *PopulationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"regions":   h.regionService.Lookup().Len(),
	}
	code := http.StatusOK

	if h.health != nil {
		if err := h.health.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Store unavailable", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// runMerge reads the upload, resolves the region selection and merges.
// Without an explicit shape the files are classified and must all share one.
func (h *PopulationHandler) runMerge(w http.ResponseWriter, r *http.Request) (*services.MergeResult, error) {
	ctx := r.Context()

	files, err := h.readUpload(w, r)
	if err != nil {
		return nil, err
	}

	district := r.FormValue("district")
	if district == "" {
		district = regions.AllDistricts
	}
	filter, err := h.regionService.FilterFor(ctx, district, r.MultipartForm.Value["sub_district"], r.FormValue("codes"))
	if err != nil {
		return nil, err
	}

	shapeName := r.FormValue("shape")
	if shapeName != "" && shapeName != "auto" {
		kind, err := models.ParseShapeKind(shapeName)
		if err != nil {
			return nil, err
		}
		return h.mergeService.Merge(ctx, services.MergeRequest{
			Shape:  models.ShapeByKind(kind),
			Files:  files,
			Filter: filter,
		})
	}

	auto, err := h.mergeService.MergeAuto(ctx, files, filter)
	if err != nil {
		return nil, err
	}
	failures := auto.Failures()
	switch len(auto.Groups) {
	case 0:
		if len(failures) > 0 {
			return nil, models.NewAggregateFailure(fileErrors(failures))
		}
		return nil, &models.ValidationError{Field: "files", Message: "no file matches a known shape"}
	case 1:
		group := auto.Groups[0]
		if group.Err != nil {
			var aggregateErr *models.AggregateFailure
			if errors.As(group.Err, &aggregateErr) && len(failures) > 0 {
				all := append(fileErrors(failures), aggregateErr.Failures...)
				return nil, models.NewAggregateFailure(all)
			}
			return nil, group.Err
		}
		group.Result.Outcomes = append(group.Result.Outcomes, failures...)
		return group.Result, nil
	default:
		return nil, &models.ValidationError{Field: "shape", Message: "files span more than one shape, choose one"}
	}
}

func fileErrors(outcomes []services.FileOutcome) []models.FileError {
	out := make([]models.FileError, len(outcomes))
	for i, o := range outcomes {
		out[i] = models.FileError{Filename: o.Filename, Err: o.Err}
	}
	return out
}

// readUpload parses the multipart body and loads every "files" part
func (h *PopulationHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]services.InputFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, &models.ValidationError{Field: "files", Message: fmt.Sprintf("invalid upload: %v", err)}
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, &models.ValidationError{Field: "files", Message: "no input files"}
	}

	files := make([]services.InputFile, 0, len(headers))
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		files = append(files, services.InputFile{Name: fh.Filename, Content: content})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) (int, string) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		aggregateErr  *models.AggregateFailure
		mismatchErr   *models.ShapeMismatchError
		rowLimitErr   *models.RowLimitError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &mismatchErr), errors.Is(err, models.ErrSelectionRequired):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &aggregateErr), errors.As(err, &rowLimitErr), errors.Is(err, models.ErrEmptyResult):
		return http.StatusUnprocessableEntity, "merge_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *PopulationHandler) handleError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	code, errorType := statusFor(err)
	h.metrics.RecordAPIError(errorType, endpoint)

	fields := logging.Fields{"endpoint": endpoint, "status": code}
	if code >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", fields, err)
	} else {
		h.logger.Warn(r.Context(), "[API_REJECTED] Request rejected", logging.Fields{
			"endpoint": endpoint,
			"status":   code,
			"error":    err.Error(),
		})
	}

	var details []string
	var aggregateErr *models.AggregateFailure
	if errors.As(err, &aggregateErr) {
		details = aggregateErr.Reasons()
	}

	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "internal server error"
	}
	h.sendError(w, r, endpoint, message, code, details)
}

func (h *PopulationHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// sendJSON sends a JSON response
func (h *PopulationHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *PopulationHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int, details []string) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
		Details: details,
	}

	h.sendJSON(w, response, statusCode)
}

// RequestID tags every request with an id, reusing X-Request-Id when sent
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// RegisterRoutes registers all API routes
func (h *PopulationHandler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestID)
	router.HandleFunc("/api/merge", h.Merge).Methods("POST")
	router.HandleFunc("/api/merge/report", h.MergeReport).Methods("POST")
	router.HandleFunc("/api/preview", h.Preview).Methods("POST")
	router.HandleFunc("/api/regions/districts", h.Districts).Methods("GET")
	router.HandleFunc("/api/regions/districts/{district}", h.SubDistricts).Methods("GET")
	router.HandleFunc("/api/regions/describe", h.Describe).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
