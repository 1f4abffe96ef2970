package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "sayit/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError translates a domain error into the JSON error envelope. Unknown
// errors collapse to a plain 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	message := "internal error"
	var de *dErrors.Error
	if errors.As(err, &de) && status < http.StatusInternalServerError {
		message = de.Message
	}
	writeJSON(w, status, map[string]string{
		"error":   string(code),
		"message": message,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
