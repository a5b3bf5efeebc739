// Package http provides the REST transport of the expense API.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON or form bodies with key-presence tracking for partial updates, and
// the filter and pagination query parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

// MaxBodyBytes bounds every request body.
const MaxBodyBytes = 1 << 20

var (
	ErrMalformedBody = errors.New("malformed request body")
	ErrBodyTooLarge  = errors.New("request body too large")
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most MaxBodyBytes of the request body once
// and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(p.err, &tooLarge) {
		p.err = ErrBodyTooLarge
	}
	return p
}

// Parse decodes the body as a JSON object or as form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.Contains(p.contentType, "json") || trimmed[0] == '{' || trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil || p.jsonData == nil {
			p.jsonData = nil
			p.err = fmt.Errorf("%w: expected a JSON object", ErrMalformedBody)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", ErrMalformedBody, p.err)
	}
	return p.err
}

// Has reports whether key was supplied, even as null.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// IsNull reports whether key was supplied as JSON null.
func (p *RequestBodyParser) IsNull(key string) bool {
	if p.jsonData == nil {
		return false
	}
	v, ok := p.jsonData[key]
	return ok && v == nil
}

// Get returns a trimmed string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(p.formData.Get(key))
	}
	return ""
}

// Strings returns a list value: a JSON array, or a comma separated string,
// or repeated form fields. Nil means absent or null.
func (p *RequestBodyParser) Strings(key string) []string {
	if p.jsonData != nil {
		switch v := p.jsonData[key].(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				out = append(out, stringValue(item))
			}
			return out
		case string:
			return strings.Split(v, ",")
		}
		return nil
	}
	if p.formData != nil {
		values, ok := p.formData[key]
		if !ok {
			return nil
		}
		var out []string
		for _, v := range values {
			out = append(out, strings.Split(v, ",")...)
		}
		if out == nil {
			out = []string{}
		}
		return out
	}
	return nil
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// ExpenseInput maps the body onto a create request.
func (p *RequestBodyParser) ExpenseInput() core.ExpenseInput {
	return core.ExpenseInput{
		Title:       p.Get("title"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
		Description: p.Get("description"),
		Tags:        p.Strings("tags"),
	}
}

// ExpensePatch maps the body onto a partial update. Only supplied keys are
// set; a null description clears it.
func (p *RequestBodyParser) ExpensePatch() core.ExpensePatch {
	var patch core.ExpensePatch
	text := func(key string) core.Optional[string] {
		if !p.Has(key) || p.IsNull(key) {
			return core.Optional[string]{}
		}
		return core.Some(p.Get(key))
	}

	patch.Title = text("title")
	patch.Amount = text("amount")
	patch.Category = text("category")
	patch.Date = text("date")
	if p.Has("description") {
		patch.Description = core.Some(p.Get("description"))
	}
	if p.Has("tags") {
		patch.Tags = core.Some(p.Strings("tags"))
	}
	return patch
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseFilter reads category, startDate and endDate from the query.
func ParseFilter(query url.Values) (core.Filter, error) {
	f := core.Filter{Category: strings.TrimSpace(query.Get("category"))}

	if v := strings.TrimSpace(query.Get("startDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, core.NewValidationError("startDate", "startDate must be YYYY-MM-DD or RFC 3339")
		}
		f.StartDate = &d
	}
	if v := strings.TrimSpace(query.Get("endDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, core.NewValidationError("endDate", "endDate must be YYYY-MM-DD or RFC 3339")
		}
		f.EndDate = &d
	}
	return f, nil
}

// ParsePage reads page and limit from the query. Absent values take the
// defaults; limits above the maximum are clamped.
func ParsePage(query url.Values) (core.Page, error) {
	var (
		page core.Page
		err  error
	)
	if page.Page, err = positiveInt(query, "page"); err != nil {
		return core.Page{}, err
	}
	if page.Limit, err = positiveInt(query, "limit"); err != nil {
		return core.Page{}, err
	}
	return page.Normalize(), nil
}

func positiveInt(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, core.NewValidationError(key, key+" must be a positive integer")
	}
	return n, nil
}
