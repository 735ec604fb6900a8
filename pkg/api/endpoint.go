package api

import (
	"net/http"

	"github.com/labstack/echo"

	"github.com/fleetware/hub/pkg/api/resource"
	"github.com/fleetware/hub/pkg/storage"
)

func (h *Handler) handleFetchEndpoints(c echo.Context) error {
	m, err := h.store.Endpoints().FetchAll(h.namespace)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewEndpointList(m))
}

func (h *Handler) handleFetchLiveEndpoints(c echo.Context) error {
	list, err := h.ctrl.ListLiveEndpoints()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, list)
}

func (h *Handler) handleGetEndpointByID(c echo.Context) error {
	endpointID := c.Param("id")

	m, err := h.store.Endpoints().FindByEndpointID(h.namespace, endpointID)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewEndpoint(m))
}

func (h *Handler) handleCreateEndpoint(c echo.Context) error {
	r := &resource.EndpointResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	if r.Namespace == "" {
		r.Namespace = h.namespace
	}

	m, err := resource.ValidateEndpoint(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	err = h.store.Endpoints().Create(m)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusCreated, resource.NewEndpoint(m))
}

func (h *Handler) handleDeleteEndpoint(c echo.Context) error {
	endpointID := c.Param("id")

	_, err := h.store.Endpoints().FindByEndpointID(h.namespace, endpointID)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	err = h.store.Endpoints().Delete(h.namespace, endpointID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	// Deleting the inventory row also drops the live telemetry record,
	// so a re-enrolled endpoint id starts from a clean slate.
	h.ctrl.ForgetEndpoint(endpointID)

	return c.JSON(http.StatusNoContent, nil)
}
