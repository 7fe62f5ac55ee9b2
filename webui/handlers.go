package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"outlook_backend/core"
	"outlook_backend/export"
	"outlook_backend/extract"
	"outlook_backend/metrics"
	"outlook_backend/pipeline"

	"go.uber.org/zap"
)

const (
	buttonLabel = "📈 Prognose jetzt generieren"

	// multipartMemory is kept in memory before spilling to temp files.
	multipartMemory = 32 << 20
)

// pageData feeds templates/index.html.
type pageData struct {
	Title          string
	Description    string
	Version        string
	ButtonLabel    string
	SpinnerText    string
	DoneText       string
	MaxFiles       int
	MaxFileSize    string
	Budget         int
	HistoryEnabled bool

	Error    string
	Warnings []string
	Result   *resultView
}

type resultView struct {
	HTML        template.HTML
	DownloadURL string
	FileName    string
	Model       string
	Duration    string
	Documents   []string

	Truncated      bool
	KeptPercent    int
	Budget         int
	OriginalTokens int
	FinalTokens    int
	PromptTokens   int
}

func (s *Server) newPage() *pageData {
	return &pageData{
		Title:          s.config.Title,
		Description:    s.config.Description,
		Version:        s.config.Version,
		ButtonLabel:    buttonLabel,
		SpinnerText:    pipeline.ProgressMessage(pipeline.StageComplete),
		DoneText:       pipeline.ProgressMessage(pipeline.StageDone),
		MaxFiles:       s.config.MaxFiles,
		MaxFileSize:    core.FormatBytes(s.config.MaxFileSize),
		Budget:         s.generator.Budget(),
		HistoryEnabled: s.history != nil,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, page *pageData) {
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, "index", page); err != nil {
		s.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "Interner Fehler", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, buf.String())
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	page := s.newPage()
	page.Error = message
	s.render(w, status, page)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.newPage())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ip := getClientIP(r)
	if ok, wait := s.limiter.Allow(ip); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		s.renderError(w, http.StatusTooManyRequests,
			"Zu viele Anfragen. Bitte in einer Minute erneut versuchen.")
		return
	}

	files, status, msg := s.readUpload(w, r)
	if msg != "" {
		s.renderError(w, status, msg)
		return
	}

	var out *pipeline.Output
	err := s.runner.WrapOperation(r.Context(), "generate", func(ctx context.Context) error {
		var genErr error
		out, genErr = s.generator.Generate(ctx, pipeline.Input{Files: files})
		return genErr
	})
	if err != nil {
		s.handleGenerateError(w, err)
		return
	}

	page := s.newPage()
	page.Warnings = warningTexts(out.Warnings)
	view, err := s.resultView(out)
	if err != nil {
		s.logger.Error("failed to render forecast", zap.String("request_id", out.RequestID), zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, "Die Prognose konnte nicht angezeigt werden.")
		return
	}
	page.Result = view
	s.render(w, http.StatusOK, page)
}

// readUpload parses the multipart form. A non-empty message means the
// request is rejected with status. The token budget is not a form field;
// it is fixed by configuration.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]extract.File, int, string) {
	maxBody := s.config.MaxFileSize*int64(s.config.MaxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Die Dateien sind zu groß (höchstens %s pro Datei).", core.FormatBytes(s.config.MaxFileSize))
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, http.StatusBadRequest, "Die Anfrage konnte nicht gelesen werden."
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	if len(headers) > s.config.MaxFiles {
		return nil, http.StatusBadRequest,
			fmt.Sprintf("Bitte höchstens %d Dateien hochladen.", s.config.MaxFiles)
	}

	files := make([]extract.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readFileHeader(fh)
		if err != nil {
			s.logger.Warn("failed to read upload", zap.String("file", fh.Filename), zap.Error(err))
			return nil, http.StatusBadRequest, fmt.Sprintf("Die Datei %s konnte nicht gelesen werden.", fh.Filename)
		}
		files = append(files, extract.File{Name: fh.Filename, Data: data})
	}
	return files, 0, ""
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleGenerateError(w http.ResponseWriter, err error) {
	se, ok := pipeline.AsStageError(err)
	if !ok {
		s.logger.Warn("generation rejected", zap.Error(err))
		s.renderError(w, http.StatusServiceUnavailable,
			"Der Dienst wird gerade neu gestartet. Bitte gleich erneut versuchen.")
		return
	}

	status := http.StatusInternalServerError
	switch se.Kind() {
	case pipeline.KindCompletion:
		status = http.StatusBadGateway
	case pipeline.KindExtraction:
		status = http.StatusUnprocessableEntity
	case pipeline.KindCancelled:
		// The client is gone; the status only shows up in the access log.
		status = 499
	}
	s.renderError(w, status, se.UserMessage())
}

func (s *Server) resultView(out *pipeline.Output) (*resultView, error) {
	html, err := RenderMarkdown(out.Text)
	if err != nil {
		return nil, err
	}
	d := s.downloads.Put(out.FileName, out.DOCX)

	view := &resultView{
		HTML:        html,
		DownloadURL: "/download/" + d.ID,
		FileName:    out.FileName,
		Duration:    out.Duration().Round(100 * time.Millisecond).String(),
	}
	if out.Completion != nil {
		view.Model = out.Completion.Model
	}
	for _, doc := range out.Documents {
		view.Documents = append(view.Documents, doc.Name)
	}
	if a := out.Assembly; a != nil {
		view.Truncated = a.Truncated
		view.KeptPercent = 100
		if a.OriginalChars > 0 {
			view.KeptPercent = (a.OriginalChars - a.DroppedChars) * 100 / a.OriginalChars
		}
		view.Budget = a.Budget
		view.OriginalTokens = a.OriginalTokens
		view.FinalTokens = a.FinalTokens
		view.PromptTokens = a.PromptTokens
	}
	return view, nil
}

func warningTexts(warnings []*extract.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		switch {
		case errors.Is(w, extract.ErrEmptyFile):
			out = append(out, fmt.Sprintf("%s: Die Datei ist leer und wurde übersprungen.", w.File))
		case errors.Is(w, extract.ErrUnsupported):
			out = append(out, fmt.Sprintf("%s: Dieses Format wird nicht unterstützt (nur PDF und DOCX).", w.File))
		default:
			out = append(out, fmt.Sprintf("%s: %s", w.File, w.Reason))
		}
	}
	return out
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	d, err := s.downloads.Get(r.PathValue("id"))
	if err != nil {
		msg := "Der Download wurde nicht gefunden."
		if errors.Is(err, ErrDownloadExpired) {
			msg = "Der Download ist abgelaufen. Bitte die Prognose neu erstellen."
		}
		s.renderError(w, http.StatusNotFound, msg)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(d.Data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, s.config.HistoryLimit)
	}

	records, err := s.history.RecentGenerations(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to load history", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(records),
		"generations": records,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "stats are disabled"})
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recent must be a non-negative integer"})
			return
		}
		limit = min(n, s.config.HistoryLimit)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary": s.stats.Summary(),
		"recent":  s.stats.Recent(limit),
	})
}

type healthResponse struct {
	Status      string           `json:"status"`
	Version     string           `json:"version"`
	Budget      int              `json:"budget"`
	History     string           `json:"history"`
	Downloads   int              `json:"downloads"`
	Generations *metrics.Summary `json:"generations,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Version:   s.config.Version,
		Budget:    s.generator.Budget(),
		History:   "disabled",
		Downloads: s.downloads.Count(),
	}
	if s.stats != nil {
		sum := s.stats.Summary()
		resp.Generations = &sum
	}
	status := http.StatusOK

	if s.history != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.history.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.History = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.History = "ok"
		}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
