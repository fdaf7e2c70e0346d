package api

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/docsense/docsense/internal/dal"
	"github.com/docsense/docsense/internal/dom"
	"github.com/docsense/docsense/internal/quality"
	"github.com/docsense/docsense/internal/query"
	"github.com/docsense/docsense/internal/replace"
)

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var tce *quality.ThresholdConfigError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, query.ErrInvalidPattern), errors.As(err, &tce):
		return http.StatusBadRequest
	case errors.Is(err, dal.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, dal.ErrReadOnlyFormat), errors.Is(err, replace.ErrReplacementConflict):
		return http.StatusConflict
	case errors.Is(err, dom.ErrMalformedContent):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
