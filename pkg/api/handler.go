package api

import (
	"github.com/labstack/echo"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/pkg/hub"
	"github.com/fleetware/hub/pkg/storage"
)

// Handler contains all properties to serve the API
type Handler struct {
	nc        *nats.Conn
	store     storage.Interface
	ctrl      *hub.Controller
	namespace string
}

// NewHandler create a new API handler
func NewHandler(nc *nats.Conn, store storage.Interface, ctrl *hub.Controller) *Handler {
	return &Handler{
		nc:        nc,
		store:     store,
		ctrl:      ctrl,
		namespace: hub.DefaultNamespace,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")
	api := e.Group("/api/v1")

	api.GET("/endpoints", h.handleFetchEndpoints)
	api.POST("/endpoints", h.handleCreateEndpoint)
	api.GET("/endpoints/live", h.handleFetchLiveEndpoints)
	api.GET("/endpoints/:id", h.handleGetEndpointByID)
	api.DELETE("/endpoints/:id", h.handleDeleteEndpoint)
	api.GET("/endpoints/:id/policy", h.handleGetEffectivePolicy)
	api.GET("/endpoints/:id/policies", h.handleFetchEndpointPolicies)
	api.PUT("/endpoints/:id/restrictions", h.handleSetEndpointRestrictions)
	api.GET("/endpoints/:id/assignment", h.handleGetAssignment)
	api.PUT("/endpoints/:id/assignment", h.handleSetAssignment)
	api.DELETE("/endpoints/:id/assignment", h.handleClearAssignment)

	api.GET("/groups", h.handleFetchGroups)
	api.POST("/groups", h.handleCreateGroup)
	api.GET("/groups/:id", h.handleGetGroupByID)
	api.DELETE("/groups/:id", h.handleDeleteGroup)
	api.GET("/groups/:id/members", h.handleFetchGroupMembers)
	api.PUT("/groups/:id/members/:endpointId", h.handleAddGroupMember)
	api.DELETE("/groups/:id/members/:endpointId", h.handleRemoveGroupMember)
	api.GET("/groups/:id/policies", h.handleFetchGroupPolicies)
	api.PUT("/groups/:id/restrictions", h.handleSetGroupRestrictions)

	api.POST("/policies", h.handleCreatePolicy)
	api.DELETE("/policies/:id", h.handleDeletePolicy)

	api.POST("/dispatch", h.handleDispatchRequest)
	api.POST("/request/:id", h.handleCorrelatedRequest)

	api.POST("/endpoints/:id/remote-session", h.handleStartRemoteSession)
	api.GET("/remote-sessions/:sid", h.handleGetRemoteSession)
	api.DELETE("/remote-sessions/:sid", h.handleStopRemoteSession)
	api.POST("/remote-sessions/:sid/input", h.handleRelayInputEvent)

	api.GET("/events", h.handleFetchEvents)

	api.Any("/realtime-events", h.realtimeEventsHandler())
}
