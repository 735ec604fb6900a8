package api

import (
	"net/http"

	"github.com/labstack/echo"

	"github.com/fleetware/hub/pkg/api/resource"
	"github.com/fleetware/hub/pkg/storage"
)

func (h *Handler) handleGetAssignment(c echo.Context) error {
	endpointID := c.Param("id")

	m, err := h.store.Assignments().GetForEndpoint(h.namespace, endpointID)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewAssignment(m))
}

func (h *Handler) handleSetAssignment(c echo.Context) error {
	endpointID := c.Param("id")

	r := &resource.AssignmentResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	r.Namespace = h.namespace
	r.EndpointID = endpointID

	if _, err := resource.ValidateAssignment(r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Assignments().Set(h.namespace, endpointID, r.UserID)
	if err != nil && storage.IsConflict(err) {
		conflict := err.(*storage.ConflictError)
		return c.JSON(http.StatusConflict, resource.AssignmentConflictResource{
			UserID:      conflict.UserID,
			EndpointIDs: conflict.EndpointIDs,
		})
	} else if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewAssignment(m))
}

func (h *Handler) handleClearAssignment(c echo.Context) error {
	endpointID := c.Param("id")

	err := h.store.Assignments().Clear(h.namespace, endpointID)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusNoContent, nil)
}
