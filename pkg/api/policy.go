package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/fleetware/hub/pkg/api/resource"
	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

func (h *Handler) handleGetEffectivePolicy(c echo.Context) error {
	endpointID := c.Param("id")

	_, err := h.store.Endpoints().FindByEndpointID(h.namespace, endpointID)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	policy, err := h.ctrl.ResolveEffectivePolicy(endpointID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, policy)
}

func (h *Handler) handleFetchEndpointPolicies(c echo.Context) error {
	endpointID := c.Param("id")

	m, err := h.store.Policies().ListForEndpoint(h.namespace, endpointID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewAppPolicyList(m))
}

func (h *Handler) handleFetchGroupPolicies(c echo.Context) error {
	id, err := groupIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Policies().ListForGroup(id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewAppPolicyList(m))
}

func (h *Handler) handleCreatePolicy(c echo.Context) error {
	r := &resource.AppPolicyResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	if r.Namespace == "" {
		r.Namespace = h.namespace
	}

	m, err := resource.ValidateAppPolicy(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	err = h.store.Policies().Create(m)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusCreated, resource.NewAppPolicy(m))
}

func (h *Handler) handleDeletePolicy(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	err = h.store.Policies().Delete(int32(id))
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusNoContent, nil)
}

func (h *Handler) handleSetGroupRestrictions(c echo.Context) error {
	id, err := groupIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	r := model.Restrictions{}
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	if err := h.store.Policies().SetRestrictionsForGroup(id, r); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, r)
}

func (h *Handler) handleSetEndpointRestrictions(c echo.Context) error {
	endpointID := c.Param("id")

	r := model.Restrictions{}
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	if err := h.store.Policies().SetRestrictionsForEndpoint(h.namespace, endpointID, r); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, r)
}
