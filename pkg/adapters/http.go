package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"

	"github.com/driftcast/driftcast/pkg/cube"
)

// HTTPAdapter is a generic HTTP adapter that can call any REST API
// endpoint and extract an observational series using JSON path
// expressions.
//
// It supports:
//   - Configurable HTTP method (GET, POST, etc.)
//   - Template-based request body with variables: {{.WindowYears}}, {{.StartYear}}, {{.EndYear}}
//   - Custom headers including authentication (Bearer tokens, API keys, etc.)
//   - JSON path extraction for timestamps and values using gjson syntax
//   - Flexible timestamp parsing (RFC3339, Unix seconds, plain years)
//
// Example configuration for a climate index API:
//
//	adapter := &HTTPAdapter{
//	    URL: "https://api.example.com/indices/amo",
//	    Method: "POST",
//	    Headers: map[string]string{
//	        "Authorization": "Bearer {{.Token}}",
//	        "Content-Type": "application/json",
//	    },
//	    Body: `{"from": {{.StartYear}}, "to": {{.EndYear}}}`,
//	    ValuePath: "data.#.anomaly",
//	    TimestampPath: "data.#.year",
//	    TimestampFormat: "year",
//	}
type HTTPAdapter struct {
	// URL is the endpoint to call (required)
	URL string

	// Method is the HTTP method (GET, POST, etc.). Defaults to GET if empty.
	Method string

	// Headers are custom HTTP headers to include in the request.
	// Values can use template variables like {{.Token}}.
	Headers map[string]string

	// Body is the request body template (for POST/PUT). Supports variables:
	//   {{.WindowYears}}  - the collection window in years
	//   {{.StartYear}}    - first year of the window
	//   {{.EndYear}}      - last year of the window
	//   {{.StartRFC3339}} - window start as RFC3339 string
	//   {{.EndRFC3339}}   - window end as RFC3339 string
	Body string

	// ValuePath is the gjson path to extract series values from the
	// response. Use "#" for arrays, e.g. "data.#.anomaly".
	ValuePath string

	// TimestampPath is the gjson path to extract timestamps from the
	// response. Must return the same number of elements as ValuePath.
	TimestampPath string

	// TimestampFormat specifies how to parse timestamps:
	//   "rfc3339" - RFC3339 strings (default)
	//   "unix"    - Unix seconds (float or int)
	//   "year"    - plain calendar years, mapped to January 1
	TimestampFormat string

	// Units tags the resulting cube's units attribute, e.g. "C".
	Units string

	// HTTPClient is optional; if nil a default client with timeout is used.
	HTTPClient *http.Client

	// TemplateVars are custom variables available in Body and Headers
	// templates. Use this to pass tokens, API keys, etc.
	TemplateVars map[string]string
}

func (h *HTTPAdapter) Name() string { return "http" }

// Collect implements Adapter. It calls the configured HTTP endpoint and
// extracts the series using the configured JSON paths.
func (h *HTTPAdapter) Collect(ctx context.Context, windowYears int) (*cube.Cube, error) {
	if err := h.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("http adapter: %w", err)
	}
	if windowYears <= 0 {
		windowYears = 1
	}

	now := time.Now().UTC()
	start := now.AddDate(-windowYears, 0, 0)

	templateData := map[string]any{
		"WindowYears":  windowYears,
		"StartYear":    start.Year(),
		"EndYear":      now.Year(),
		"StartRFC3339": start.Format(time.RFC3339),
		"EndRFC3339":   now.Format(time.RFC3339),
	}
	for k, v := range h.TemplateVars {
		templateData[k] = v
	}

	method := h.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if h.Body != "" {
		rendered, err := renderTemplate(h.Body, templateData)
		if err != nil {
			return nil, fmt.Errorf("render body template: %w", err)
		}
		bodyReader = bytes.NewBufferString(rendered)
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, method, h.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range h.Headers {
		rendered, err := renderTemplate(value, templateData)
		if err != nil {
			return nil, fmt.Errorf("render header %s: %w", key, err)
		}
		req.Header.Set(key, rendered)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return h.extract(respBody)
}

// extract pulls the value and timestamp arrays out of a JSON document and
// assembles the sorted series cube.
func (h *HTTPAdapter) extract(doc []byte) (*cube.Cube, error) {
	values := gjson.GetBytes(doc, h.ValuePath)
	timestamps := gjson.GetBytes(doc, h.TimestampPath)

	if !values.Exists() {
		return nil, fmt.Errorf("value path %q not found in response", h.ValuePath)
	}
	if !timestamps.Exists() {
		return nil, fmt.Errorf("timestamp path %q not found in response", h.TimestampPath)
	}

	valArray := values.Array()
	tsArray := timestamps.Array()
	if len(valArray) != len(tsArray) {
		return nil, fmt.Errorf("value count (%d) != timestamp count (%d)", len(valArray), len(tsArray))
	}
	if len(valArray) == 0 {
		return nil, errors.New("response contains an empty series")
	}

	type point struct {
		ts  time.Time
		val float64
	}
	points := make([]point, len(valArray))
	for i := range valArray {
		ts, err := h.parseTimestamp(tsArray[i])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp[%d]: %w", i, err)
		}
		points[i] = point{ts: ts, val: valArray[i].Float()}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].ts.Before(points[j].ts) })

	times := make([]time.Time, len(points))
	data := make([]float64, len(points))
	for i, p := range points {
		times[i] = p.ts
		data[i] = p.val
	}

	series, err := cube.New(data, cube.TimeAxis("time", times))
	if err != nil {
		return nil, err
	}
	if h.Units != "" {
		series.SetAttr("units", h.Units)
	}
	return series, nil
}

// parseTimestamp parses a timestamp according to the configured format.
func (h *HTTPAdapter) parseTimestamp(value gjson.Result) (time.Time, error) {
	format := h.TimestampFormat
	if format == "" {
		format = "rfc3339"
	}

	switch format {
	case "rfc3339":
		return time.Parse(time.RFC3339, value.String())

	case "unix":
		// Unix seconds (supports both int and float)
		sec := value.Float()
		return time.Unix(int64(sec), 0).UTC(), nil

	case "year":
		year := int(value.Float())
		if year == 0 && value.String() != "0" {
			return time.Time{}, fmt.Errorf("not a year: %q", value.String())
		}
		return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), nil

	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", format)
	}
}

// ValidateConfig checks if the adapter configuration is valid.
func (h *HTTPAdapter) ValidateConfig() error {
	if h.URL == "" {
		return errors.New("url is required")
	}
	if h.ValuePath == "" {
		return errors.New("valuePath is required")
	}
	if h.TimestampPath == "" {
		return errors.New("timestampPath is required")
	}

	validFormats := map[string]bool{
		"":        true,
		"rfc3339": true,
		"unix":    true,
		"year":    true,
	}
	if !validFormats[h.TimestampFormat] {
		return fmt.Errorf("invalid timestampFormat: %s (must be rfc3339, unix, or year)", h.TimestampFormat)
	}
	return nil
}

// renderTemplate renders a text template with the given data.
func renderTemplate(tmplStr string, data map[string]any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
