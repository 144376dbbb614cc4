package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rcng81/gighop/internal/lifecycle"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeErrMsg(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeErr maps a lifecycle error kind to its HTTP status. Anything
// without a kind is an internal failure and is logged, not leaked.
func writeErr(w http.ResponseWriter, log *slog.Logger, err error) {
	switch lifecycle.KindOf(err) {
	case lifecycle.KindUnauthorized:
		writeErrMsg(w, http.StatusForbidden, err.Error())
	case lifecycle.KindInvalidState:
		writeErrMsg(w, http.StatusConflict, err.Error())
	case lifecycle.KindInvalidInput:
		writeErrMsg(w, http.StatusBadRequest, err.Error())
	case lifecycle.KindNotFound:
		writeErrMsg(w, http.StatusNotFound, err.Error())
	default:
		log.Error("internal error", "error", err)
		writeErrMsg(w, http.StatusInternalServerError, "internal error")
	}
}
