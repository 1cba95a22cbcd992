package endpoints

import (
	"net/http"

	"helpdesk-relay/internal/dto"
)

type UtilsEndpoints interface {
	Health(http.ResponseWriter, *http.Request) error
}

type utilsEndpoints struct{}

func NewUtilsEndpoints() UtilsEndpoints {
	return &utilsEndpoints{}
}

func (h *utilsEndpoints) Health(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			return WriteJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
		},
	})
}
