package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"helpdesk-relay/internal/api/middleware"
	"helpdesk-relay/internal/queue"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MakeHTTPHandleFunc runs f on the request queue behind CORS and the access
// log. authMiddleware runs before the job is queued.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		if err := s.requestQueueManager.EnqueueJob(r.Context(), job); err != nil {
			s.log.Warn("request not queued", "path", r.URL.Path, "error", err)
			WriteJSON(w, http.StatusServiceUnavailable, ApiError{Error: "Server is busy, try again later."})
			return
		}

		if err := <-errc; err != nil {
			s.writeError(w, r, err)
		}
	}

	finalHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		authHandler := baseHandler
		for _, m := range authMiddleware {
			authHandler = m(authHandler)
		}
		authHandler(w, r)
	}

	return middleware.Chain(finalHandler, middleware.CORS(s.cors), middleware.Logging(s.log))
}

// MakeDirectHandleFunc serves h on the calling goroutine with only the access
// log in front. Long-lived handlers such as the websocket upgrade use it.
func (s *APIServer) MakeDirectHandleFunc(h http.HandlerFunc, middlewares ...middleware.Middleware) http.HandlerFunc {
	return middleware.Chain(h, append([]middleware.Middleware{middleware.Logging(s.log)}, middlewares...)...)
}

func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.ErrorLog != nil {
			s.log.Info("request failed", "path", r.URL.Path, "status", httpErr.StatusCode, "error", httpErr.ErrorLog)
		}
		WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message})
		return
	}
	s.log.Error("request failed", "path", r.URL.Path, "error", err)
	WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
}
