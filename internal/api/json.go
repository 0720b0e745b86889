package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/ont/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// errResponse is the body of every failed request. Kind names the error
// class so clients can branch without parsing the message.
type errResponse struct {
	Error string `json:"error" validate:"required"`
	Kind  string `json:"kind,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg, Kind: "bad_request"}
}

var errorKinds = []struct {
	err    error
	status int
	kind   string
	expose bool
}{
	{apperr.ErrNotFound, http.StatusNotFound, "not_found", false},
	{apperr.ErrConflict, http.StatusConflict, "conflict", false},
	{apperr.ErrForbidden, http.StatusForbidden, "forbidden", false},
	{apperr.ErrStructural, http.StatusBadRequest, "structural", true},
	{apperr.ErrParse, http.StatusBadRequest, "parse", true},
	{apperr.ErrMalformed, http.StatusBadRequest, "malformed", true},
	{apperr.ErrExecution, http.StatusUnprocessableEntity, "execution", true},
}

var fixedMessages = map[string]string{
	"not_found": "not found",
	"conflict":  "checksum mismatch",
	"forbidden": "forbidden",
}

// writeError maps domain errors onto status codes. Anything unclassified
// is logged and reported as an internal error.
func writeError(w http.ResponseWriter, op string, err error, attrs ...slog.Attr) {
	for _, k := range errorKinds {
		if !errors.Is(err, k.err) {
			continue
		}
		msg := fixedMessages[k.kind]
		if k.expose {
			msg = err.Error()
		}
		writeJSON(w, k.status, errResponse{Error: msg, Kind: k.kind})
		return
	}

	args := []any{slog.String("error", err.Error())}
	for _, a := range attrs {
		args = append(args, a)
	}
	slog.Error(op+" failed", args...)
	writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error", Kind: "internal"})
}
