package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into T. Unknown fields and trailing
// data are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil {
		return v, fmt.Errorf("request body is empty")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, fmt.Errorf("request body is empty")
		}
		return v, err
	}
	if dec.More() {
		return v, fmt.Errorf("request body must contain a single JSON object")
	}
	return v, nil
}

// parseDateRangeQuery reads the optional start_date and end_date query parameters.
func parseDateRangeQuery(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	return validation.ParseDateRange(q.Get("start_date"), q.Get("end_date"))
}

// respondValidationError writes a 400 for validation failures: field maps for
// *validation.Error, a plain message otherwise.
func respondValidationError(w http.ResponseWriter, err error) {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", vErr.Fields)
		return
	}
	if errors.Is(err, apperrors.ErrInvalidDateRange) {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDateRange.Error(), "start_date must not be after end_date")
		return
	}
	response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
}
