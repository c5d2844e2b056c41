package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"
)

// maxBodyBytes bounds request bodies; ledger payloads are small.
const maxBodyBytes = 64 << 10

// badRequest reports a malformed request as a validation failure so it maps
// to 400 like any other invalid input.
func badRequest(field, format string, args ...any) error {
	return &core.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// decodeJSON decodes a single JSON object from the request body, rejecting
// unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		// Field decoders such as Money and Date already return validation errors.
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return badRequest("body", "request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("body", "request body is empty")
		default:
			return badRequest("body", "malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("body", "request body must contain a single JSON object")
	}
	return nil
}

// pathID parses the {name} path segment as a positive identifier.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(name, "invalid %s %q", name, raw)
	}
	return id, nil
}

// queryDate parses a required YYYY-MM-DD query parameter.
func queryDate(q url.Values, name string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return core.Date{}, badRequest(name, "missing %s parameter", name)
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest(name, "invalid %s %q: expected YYYY-MM-DD", name, v)
	}
	return d, nil
}

// queryDateRange parses the from/to pair; both are required and inclusive.
func queryDateRange(q url.Values) (from, to core.Date, err error) {
	if from, err = queryDate(q, "from"); err != nil {
		return
	}
	to, err = queryDate(q, "to")
	return
}

// queryYearMonth parses a YYYY-MM query parameter. ok is false when absent.
func queryYearMonth(q url.Values, name string) (ym core.YearMonth, ok bool, err error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return core.YearMonth{}, false, nil
	}
	ym, err = core.ParseYearMonth(v)
	if err != nil {
		return core.YearMonth{}, true, badRequest(name, "invalid %s %q: expected YYYY-MM", name, v)
	}
	return ym, true, nil
}

// queryLimit parses an optional integer limit, falling back to def.
func queryLimit(q url.Values, def int) (int, error) {
	v := strings.TrimSpace(q.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("limit", "invalid limit %q", v)
	}
	return n, nil
}

// queryCategory parses a category code; case is ignored.
func queryCategory(q url.Values) (core.Category, error) {
	v := strings.ToUpper(strings.TrimSpace(q.Get("category")))
	if v == "" {
		return "", badRequest("category", "missing category parameter")
	}
	c := core.Category(v)
	if !c.IsValid() {
		return "", core.ErrInvalidCategory
	}
	return c, nil
}
