package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/pkg/validator"
	"github.com/google/uuid"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type envelope map[string]any

// writeJSON only fails before anything is written, so callers may still set
// a status. A client that went away mid-write is ignored.
func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	maps.Copy(w.Header(), headers)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(js, '\n'))
	return nil
}

// readJSON decodes exactly one JSON object into dst, rejecting unknown
// fields. The returned message is safe to show to the client.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return errors.New("body must only contain a single JSON value")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func decodeError(err error) error {
	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		maxBytesErr *http.MaxBytesError
	)
	const unknownField = "json: unknown field "

	switch {
	case errors.Is(err, io.EOF):
		return errors.New("body must not be empty")
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("body contains badly-formed JSON")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Errorf("body contains incorrect JSON type for field %q", typeErr.Field)
	case errors.As(err, &typeErr):
		return fmt.Errorf("body contains incorrect JSON type (at character %d)", typeErr.Offset)
	case strings.HasPrefix(err.Error(), unknownField):
		return fmt.Errorf("body contains unknown key %s", strings.TrimPrefix(err.Error(), unknownField))
	case errors.As(err, &maxBytesErr):
		return fmt.Errorf("body must not be larger than %d bytes", maxBytesErr.Limit)
	default:
		return err
	}
}

// readIDParam parses the {id} path segment.
func readIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid id parameter")
	}
	return id, nil
}

func readString(qs url.Values, key, fallback string) string {
	if s := qs.Get(key); s != "" {
		return s
	}
	return fallback
}

func readInt(qs url.Values, key string, fallback int, v *validator.Validator) int {
	s := qs.Get(key)
	if s == "" {
		return fallback
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return fallback
	}
	return i
}

// readUUID returns nil when the key is absent.
func readUUID(qs url.Values, key string, v *validator.Validator) *uuid.UUID {
	s := qs.Get(key)
	if s == "" {
		return nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		v.AddError(key, "must be a valid uuid")
		return nil
	}
	return &id
}

// readFilters reads page, page_size and sort and validates them against safelist.
// The first safelist entry is the default sort.
func readFilters(qs url.Values, safelist []string, v *validator.Validator) models.Filters {
	page := readInt(qs, "page", 1, v)
	pageSize := readInt(qs, "page_size", models.DefaultPageSize, v)
	sort := readString(qs, "sort", safelist[0])

	filters, err := models.NewFilters(page, pageSize, sort, safelist)
	if err != nil {
		v.AddError("sort", err.Error())
		return filters
	}

	filters.Validate(v)
	return filters
}
