package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"helpdesk-relay/internal/api"
)

const maxBodyBytes = 1 << 20

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			err = fmt.Errorf("empty body")
		}
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request body.",
			ErrorLog:   fmt.Errorf("decode %s body: %w", r.URL.Path, err),
		}
	}
	return nil
}
