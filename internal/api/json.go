package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"dronenav/internal/auth"
	"dronenav/internal/loader"
	"dronenav/internal/model"
	"dronenav/internal/opt"
	"dronenav/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// errBadRequest marks request errors that have no domain sentinel.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// problemStatus maps an error chain onto an HTTP status.
func problemStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrInvalidScenario),
		errors.Is(err, loader.ErrMalformedRow),
		errors.Is(err, opt.ErrInvalidConfig),
		errors.Is(err, opt.ErrNoVehicles):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, title string, err error) {
	writeProblem(w, problemStatus(err), title, err.Error(), r.URL.Path)
}
