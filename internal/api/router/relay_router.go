package router

import (
	"net/http"

	"helpdesk-relay/internal/api"
	"helpdesk-relay/internal/api/endpoints"
	"helpdesk-relay/internal/api/middleware"
	"helpdesk-relay/internal/websocket"
)

// RelayRoutes registers the socket endpoint and the service-key protected
// endpoints the ticketing backend calls.
func RelayRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		events := endpoints.NewSocketEvents(s.Relay(), s.Queue(), s.Logger())
		socketHandler := websocket.NewHandler(s.Hub(), events, websocket.HandlerOptions{
			AllowedOrigins: s.AllowedOrigins(),
			Logger:         s.Logger(),
		})
		relayEndpoints := endpoints.NewRelayEndpoints(s.Relay(), s.Hub())
		serviceKey := middleware.ValidateServiceKey(s.ServiceKeyHash())

		mux.HandleFunc(prefix+"/socket", s.MakeDirectHandleFunc(socketHandler.ServeWS))
		mux.HandleFunc(prefix+"/tickets/assignments", s.MakeHTTPHandleFunc(relayEndpoints.TicketAssignments, serviceKey))
		mux.HandleFunc(prefix+"/rooms", s.MakeHTTPHandleFunc(relayEndpoints.Rooms, serviceKey))
	}
}

// UploadRoutes serves stored attachments under the store's public path.
func UploadRoutes() api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		store := s.Uploads()
		if store == nil {
			return
		}
		prefix := store.PublicPath()
		mux.Handle(prefix+"/", s.MakeDirectHandleFunc(endpoints.UploadsHandler(store.Root(), prefix).ServeHTTP))
	}
}
