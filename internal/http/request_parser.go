// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// transaction bodies (JSON or form-encoded) and the filter, sort and limit
// query parameters shared by the list and report endpoints.

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

	"fintrack/internal/core"
	"fintrack/internal/query"
)

// maxBodyBytes bounds a transaction request body.
const maxBodyBytes = 64 << 10

var (
	errEmptyBody     = errors.New("request body is empty")
	errInvalidNumber = errors.New("must be a positive integer")
	errDateRange     = errors.New("startDate is after endDate")
)

// RequestError reports a malformed request parameter or body. It maps to
// 400, unlike a *core.ValidationError, which maps to 422.
type RequestError struct {
	Param string
	Err   error
}

func (e *RequestError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("invalid request: %v", e.Err)
	}
	return fmt.Sprintf("invalid parameter %q: %v", e.Param, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// RequestBodyParser reads a request body once and exposes its fields,
// whether it was sent as JSON or as a form.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like an object and as a
// form otherwise. Numbers keep their exact text.
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
		p.err = errEmptyBody
		return p.err
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("malformed JSON: %w", err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// Draft collects the transaction fields of the body.
func (p *RequestBodyParser) Draft() core.Draft {
	return core.Draft{
		Amount:      p.Get("amount"),
		Type:        p.Get("type"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
		Description: p.Get("description"),
	}
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

// ParseDraft reads a transaction draft from the request body.
func ParseDraft(w http.ResponseWriter, r *http.Request) (core.Draft, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return core.Draft{}, &RequestError{Err: err}
	}
	return p.Draft(), nil
}

// ParseCriteria reads the filter parameters type, category, search (or q),
// startDate and endDate. Absent parameters select everything.
func ParseCriteria(q url.Values) (query.Criteria, error) {
	var c query.Criteria

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		typ, err := core.ParseTransactionType(v)
		if err != nil {
			return query.Criteria{}, &RequestError{Param: "type", Err: err}
		}
		c.Type = typ
	}

	c.Category = sanitizeInput(q.Get("category"))

	c.Search = sanitizeInput(q.Get("search"))
	if c.Search == "" {
		c.Search = sanitizeInput(q.Get("q"))
	}

	for _, bound := range []struct {
		param string
		dst   *core.Date
	}{
		{"startDate", &c.StartDate},
		{"endDate", &c.EndDate},
	} {
		v := strings.TrimSpace(q.Get(bound.param))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return query.Criteria{}, &RequestError{Param: bound.param, Err: err}
		}
		*bound.dst = d
	}

	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.StartDate.Compare(c.EndDate) > 0 {
		return query.Criteria{}, &RequestError{Param: "startDate", Err: errDateRange}
	}

	return c, nil
}

// ParseSort reads the sort and order parameters.
func ParseSort(q url.Values) (query.SortField, query.Direction, error) {
	field, err := query.ParseSortField(q.Get("sort"))
	if err != nil {
		return "", 0, &RequestError{Param: "sort", Err: err}
	}
	dir, err := query.ParseDirection(q.Get("order"))
	if err != nil {
		return "", 0, &RequestError{Param: "order", Err: err}
	}
	return field, dir, nil
}

// ParseLimit reads a positive limit parameter, falling back to def and
// capping at ceiling.
func ParseLimit(q url.Values, def, ceiling int) (int, error) {
	v := strings.TrimSpace(q.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, &RequestError{Param: "limit", Err: errInvalidNumber}
	}
	return min(n, ceiling), nil
}

// ParseTypeParam reads a required transaction type parameter.
func ParseTypeParam(q url.Values) (core.TransactionType, error) {
	typ, err := core.ParseTransactionType(q.Get("type"))
	if err != nil {
		return "", &RequestError{Param: "type", Err: err}
	}
	return typ, nil
}
