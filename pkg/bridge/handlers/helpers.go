package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/apierror"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/mw"
)

const maxBodyBytes = 1 << 20

func requestID(r *http.Request) string {
	id, _ := mw.RequestIDFrom(r.Context())
	return id
}

func writeError(w http.ResponseWriter, r *http.Request, apiErr *apierror.Error) {
	if apiErr.RequestID == "" {
		apiErr.RequestID = requestID(r)
	}
	apierror.WriteJSON(w, apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSONBody parses the request body into dst, rejecting oversized and
// malformed payloads with an invalid_request_error.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) *apierror.Error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apierror.NewInvalidRequestError("request body too large")
		}
		return apierror.NewInvalidRequestError("invalid JSON body: " + err.Error())
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return apierror.NewInvalidRequestError("request body must contain a single JSON object")
	}
	return nil
}
