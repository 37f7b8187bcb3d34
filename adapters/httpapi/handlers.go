package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pdlens/adapters/jsonsource"
	"pdlens/adapters/report/markdown"
	"pdlens/app"
	"pdlens/domain/core"
	"pdlens/domain/feature"
	"pdlens/internal/errors"

	"github.com/gin-gonic/gin"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleFeatureNames synthesises the canonical names for ?rois=N, with
// optional comma-separated ?roi_labels.
func (s *Server) handleFeatureNames(c *gin.Context) {
	n, err := intQuery(c, "rois", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	if n <= 0 {
		s.fail(c, errors.InvalidInput("query parameter rois must be a positive integer"))
		return
	}
	layout, err := feature.NewLayout(n, splitLabels(c.Query("roi_labels")))
	if err != nil {
		s.fail(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	names := layout.Names()
	c.JSON(http.StatusOK, gin.H{
		"roi_count": n,
		"count":     len(names),
		"names":     names,
	})
}

func (s *Server) handleCategorize(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		s.fail(c, errors.InvalidInput("query parameter name is required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"feature_name":         name,
		"feature_type":         s.interpreter.Categorize(name),
		"biological_relevance": s.interpreter.Interpret(name),
	})
}

// handleAnalyze runs the pipeline on a JSON dataset body. ?format=markdown
// or ?format=html return the rendered report instead of JSON.
func (s *Server) handleAnalyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, errors.InvalidInput(fmt.Sprintf("reading body: %v", err)))
		return
	}
	ds, err := jsonsource.Parse(body, jsonsource.DefaultPaths())
	if err != nil {
		s.fail(c, err)
		return
	}

	set := s.settings
	if set.TopK, err = intQuery(c, "top_k", set.TopK); err != nil {
		s.fail(c, err)
		return
	}
	rois, err := intQuery(c, "rois", 0)
	if err != nil {
		s.fail(c, err)
		return
	}

	result, err := s.service.Analyze(c.Request.Context(), app.AnalysisRequest{
		Dataset:  ds,
		ROICount: rois,
		Settings: set,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "markdown":
		var buf bytes.Buffer
		if err := markdown.Render(&buf, result.Document); err != nil {
			s.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", buf.Bytes())
	case "html":
		var buf bytes.Buffer
		if err := markdown.Render(&buf, result.Document); err != nil {
			s.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", renderHTML(buf.Bytes()))
	default:
		c.JSON(http.StatusOK, analyzeResponse(result))
	}
}

func (s *Server) handleListRuns(c *gin.Context) {
	runs := s.service.Runs()
	if runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run store is not configured"})
		return
	}
	limit, err := intQuery(c, "limit", 20)
	if err != nil {
		s.fail(c, err)
		return
	}
	recs, err := runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]runView, len(recs))
	for i, rec := range recs {
		out[i] = newRunView(rec, false)
	}
	c.JSON(http.StatusOK, gin.H{"runs": out, "count": len(out)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	runs := s.service.Runs()
	if runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run store is not configured"})
		return
	}
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.fail(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	rec, err := runs.GetRun(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newRunView(rec, true))
}

// fail maps the error code to an HTTP status; internal details stay in the log.
func (s *Server) fail(c *gin.Context, err error) {
	code := errors.Classify(err)
	status := statusFor(code)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidInput, errors.CodeValidationError, errors.CodeDimensionMismatch:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeModelError:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("query parameter %s must be an integer", key))
	}
	return v, nil
}

func splitLabels(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// renderHTML converts the markdown report into a standalone page.
func renderHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Parkinson's fMRI Feature Importance Report",
	})
	return gomarkdown.ToHTML(md, p, renderer)
}
