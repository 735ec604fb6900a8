package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo"

	"github.com/fleetware/hub/pkg/hub"
	"github.com/fleetware/hub/pkg/hub/message"
	"github.com/fleetware/hub/pkg/storage"
)

// busTimeout bounds the round trip over the internal bus. It is longer
// than the controller's own waiter deadline so a timed out correlated
// request still comes back as a reply with the fallback payload instead
// of a bus error.
const busTimeout = 16 * time.Second

func (h *Handler) handleDispatchRequest(c echo.Context) error {
	req := &message.DispatchRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	if req.Target == "" && req.GroupID == 0 {
		return c.JSON(http.StatusBadRequest, fmt.Errorf("target or group_id is required"))
	}
	if req.Command == "" {
		return c.JSON(http.StatusBadRequest, fmt.Errorf("command is required"))
	}

	data, err := json.Marshal(req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	msg, err := h.nc.Request(fmt.Sprintf("fleethub.v1.%s.dispatch", h.namespace), data, busTimeout)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	rep := message.DispatchReply{}
	if err := json.Unmarshal(msg.Data, &rep); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) handleCorrelatedRequest(c echo.Context) error {
	endpointID := c.Param("id")

	_, err := h.store.Endpoints().FindByEndpointID(h.namespace, endpointID)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	req := &message.CorrelatedRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	// Override these attributes
	req.Target = endpointID

	if req.Command == "" || req.ReplyType == "" {
		return c.JSON(http.StatusBadRequest, fmt.Errorf("command and reply_type are required"))
	}

	data, err := json.Marshal(req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	msg, err := h.nc.Request(fmt.Sprintf("fleethub.v1.%s.request", h.namespace), data, busTimeout)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	rep := message.CorrelatedReply{}
	if err := json.Unmarshal(msg.Data, &rep); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	if rep.Status == message.ReplyStatusError && rep.ErrorReason == hub.ErrEndpointOffline.Error() {
		return c.JSON(http.StatusServiceUnavailable, rep)
	}

	return c.JSON(http.StatusOK, rep)
}
