package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo"

	"github.com/fleetware/hub/pkg/api/resource"
	"github.com/fleetware/hub/pkg/hub"
	"github.com/fleetware/hub/pkg/hub/proto"
	"github.com/fleetware/hub/pkg/storage"
)

type startRemoteSessionRequest struct {
	OperatorID string `json:"operatorId"`
}

type inputEventRequest struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

func (h *Handler) handleStartRemoteSession(c echo.Context) error {
	endpointID := c.Param("id")

	_, err := h.store.Endpoints().FindByEndpointID(h.namespace, endpointID)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	req := &startRemoteSessionRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	if req.OperatorID == "" {
		req.OperatorID = uuid.New().String()
	}

	sess, err := h.ctrl.StartRemoteSession(endpointID, req.OperatorID)
	if err != nil && err == hub.ErrEndpointOffline {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	} else if err != nil && err == hub.ErrSessionConflict {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusCreated, resource.NewRemoteSession(sess))
}

func (h *Handler) handleGetRemoteSession(c echo.Context) error {
	sessionID := c.Param("sid")

	sess, ok := h.ctrl.RemoteSessionInfo(sessionID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": hub.ErrSessionNotFound.Error()})
	}

	return c.JSON(http.StatusOK, resource.NewRemoteSession(sess))
}

func (h *Handler) handleStopRemoteSession(c echo.Context) error {
	sessionID := c.Param("sid")

	err := h.ctrl.StopRemoteSession(sessionID)
	if err != nil && err == hub.ErrSessionNotFound {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusNoContent, nil)
}

func (h *Handler) handleRelayInputEvent(c echo.Context) error {
	sessionID := c.Param("sid")

	req := &inputEventRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	if req.Type == "" {
		return c.JSON(http.StatusBadRequest, fmt.Errorf("type is required"))
	}

	err := h.ctrl.RelayInputEvent(sessionID, proto.CommandType(req.Type), req.Params)
	switch err {
	case nil:
		return c.JSON(http.StatusAccepted, nil)
	case hub.ErrInvalidInputEvent:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case hub.ErrSessionNotFound:
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case hub.ErrSessionNotActive:
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case hub.ErrEndpointOffline:
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, err)
	}
}
