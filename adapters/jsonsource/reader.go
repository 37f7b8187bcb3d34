// Package jsonsource reads labelled feature matrices from JSON documents,
// either local files or HTTP endpoints, using configurable gjson paths.
package jsonsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"pdlens/domain/core"
	"pdlens/domain/dataset"
	"pdlens/internal"
	"pdlens/internal/errors"

	"github.com/tidwall/gjson"
)

// Paths locates each part of the dataset inside the document.
type Paths struct {
	Features     string `json:"features"`
	Labels       string `json:"labels"`
	ROILabels    string `json:"roi_labels"`
	FeatureNames string `json:"feature_names"`
}

// DefaultPaths matches {"features": [[...]], "labels": [...], "roi_labels": [...], "feature_names": [...]}.
func DefaultPaths() Paths {
	return Paths{
		Features:     "features",
		Labels:       "labels",
		ROILabels:    "roi_labels",
		FeatureNames: "feature_names",
	}
}

// Source fetches the raw JSON body.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Describe() string
}

// Reader is a ports.DatasetReader over a JSON source.
type Reader struct {
	source Source
	paths  Paths
	logger *internal.Logger
}

// NewReader creates a reader; zero-value path fields fall back to DefaultPaths.
func NewReader(source Source, paths Paths, logger *internal.Logger) *Reader {
	def := DefaultPaths()
	if paths.Features == "" {
		paths.Features = def.Features
	}
	if paths.Labels == "" {
		paths.Labels = def.Labels
	}
	if paths.ROILabels == "" {
		paths.ROILabels = def.ROILabels
	}
	if paths.FeatureNames == "" {
		paths.FeatureNames = def.FeatureNames
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{source: source, paths: paths, logger: logger.WithComponent("jsonsource")}
}

// ReadDataset fetches and parses the document.
func (r *Reader) ReadDataset(ctx context.Context) (*dataset.Dataset, error) {
	start := time.Now()
	body, err := r.source.Fetch(ctx)
	if err != nil {
		return nil, errors.IOError(r.source.Describe(), err)
	}
	ds, err := Parse(body, r.paths)
	if err != nil {
		return nil, err
	}
	r.logger.Info("loaded %d samples x %d features from %s in %v", ds.Rows(), ds.Columns(), r.source.Describe(), time.Since(start))
	return ds, nil
}

// Parse extracts a dataset from a JSON body. Feature names and ROI labels
// are optional; labels may be numbers or strings with exactly two values.
func Parse(body []byte, paths Paths) (*dataset.Dataset, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.InvalidInput("body is not valid JSON")
	}

	features := gjson.GetBytes(body, paths.Features)
	if !features.Exists() || !features.IsArray() {
		return nil, errors.InvalidInput(fmt.Sprintf("path %q must be an array of rows", paths.Features))
	}
	var rows [][]float64
	var parseErr error
	features.ForEach(func(i, row gjson.Result) bool {
		if !row.IsArray() {
			parseErr = errors.InvalidInput(fmt.Sprintf("row %d is not an array", i.Int()))
			return false
		}
		var values []float64
		row.ForEach(func(j, cell gjson.Result) bool {
			if cell.Type != gjson.Number {
				parseErr = errors.InvalidInput(fmt.Sprintf("row %d column %d: %s is not numeric", i.Int(), j.Int(), cell.Raw))
				return false
			}
			values = append(values, cell.Float())
			return true
		})
		if parseErr != nil {
			return false
		}
		rows = append(rows, values)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	labels := gjson.GetBytes(body, paths.Labels)
	if !labels.Exists() || !labels.IsArray() {
		return nil, errors.InvalidInput(fmt.Sprintf("path %q must be an array of labels", paths.Labels))
	}
	raw := stringArray(labels)
	if len(raw) != len(rows) {
		return nil, fmt.Errorf("%w: %d rows but %d labels", core.ErrInsufficientData, len(rows), len(raw))
	}
	encoded, classes, err := dataset.EncodeLabels(raw)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.FromRows(rows, encoded)
	if err != nil {
		return nil, err
	}
	ds.ClassNames = classes
	if names := gjson.GetBytes(body, paths.FeatureNames); names.IsArray() {
		ds.FeatureNames = stringArray(names)
	}
	if rois := gjson.GetBytes(body, paths.ROILabels); rois.IsArray() {
		ds.ROILabels = stringArray(rois)
	}
	return ds, nil
}

func stringArray(r gjson.Result) []string {
	arr := r.Array()
	out := make([]string, len(arr))
	for i, v := range arr {
		out[i] = v.String()
	}
	return out
}

// FileSource reads the document from disk.
type FileSource struct {
	Path string
}

// Fetch reads the file.
func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path)
}

// Describe returns the file path.
func (s FileSource) Describe() string { return s.Path }

// HTTPSource fetches the document with a GET request.
type HTTPSource struct {
	URL       string
	Headers   map[string]string
	AuthToken string // sent as a bearer token when set
	client    *http.Client
}

// NewHTTPSource creates a source with the given request timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{URL: url, client: &http.Client{Timeout: timeout}}
}

// Fetch performs the request and returns the body of a 200 response.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}
	if s.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}
	return body, nil
}

// Describe returns the URL.
func (s *HTTPSource) Describe() string { return s.URL }
