package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/fleetware/hub/pkg/api/resource"
	"github.com/fleetware/hub/pkg/storage"
)

func (h *Handler) handleFetchGroups(c echo.Context) error {
	m, err := h.store.Groups().FetchAll(h.namespace)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewGroupList(m))
}

func (h *Handler) handleGetGroupByID(c echo.Context) error {
	id, err := groupIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Groups().FindByID(id)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewGroup(m))
}

func (h *Handler) handleCreateGroup(c echo.Context) error {
	r := &resource.GroupResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	if r.Namespace == "" {
		r.Namespace = h.namespace
	}

	m, err := resource.ValidateGroup(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	err = h.store.Groups().Create(m)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusCreated, resource.NewGroup(m))
}

func (h *Handler) handleDeleteGroup(c echo.Context) error {
	id, err := groupIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	_, err = h.store.Groups().FindByID(id)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	err = h.store.Groups().Delete(id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusNoContent, nil)
}

func (h *Handler) handleFetchGroupMembers(c echo.Context) error {
	id, err := groupIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	members, err := h.store.Groups().Members(id)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewGroupMemberList(members))
}

func (h *Handler) handleAddGroupMember(c echo.Context) error {
	id, err := groupIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	endpointID := c.Param("endpointId")

	if err := h.store.Groups().AddMember(id, endpointID); err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusNoContent, nil)
}

func (h *Handler) handleRemoveGroupMember(c echo.Context) error {
	id, err := groupIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	endpointID := c.Param("endpointId")

	if err := h.store.Groups().RemoveMember(id, endpointID); err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusNoContent, nil)
}

func groupIDParam(c echo.Context) (int32, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}
