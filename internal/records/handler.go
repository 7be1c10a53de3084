// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package records

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/hatchery-assistant/internal/resilience"
)

const (
	msgInvalidRequest = "invalid request body"
	msgInvalidID      = "invalid record id"
)

// reserved query parameters; everything else is a column filter
var listControls = map[string]bool{"limit": true, "from": true, "to": true}

// Handler serves the records REST endpoints
type Handler struct {
	svc    *Service
	render func(*gin.Context, error)
	logger *zap.Logger
}

// NewHandler creates a records handler. render writes error responses.
func NewHandler(svc *Service, render func(*gin.Context, error), logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, render: render, logger: logger}
}

// Register mounts the endpoints on group
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("/:resource", h.List)
	group.POST("/:resource", h.Create)
	group.GET("/:resource/:id", h.Get)
	group.PUT("/:resource/:id", h.Update)
	group.DELETE("/:resource/:id", h.Delete)
}

// List returns rows for a resource.
// GET /api/v1/:resource?limit=&from=&to=&<column>=
func (h *Handler) List(c *gin.Context) {
	params := ListParams{
		Filters: make(map[string]string),
		From:    c.Query("from"),
		To:      c.Query("to"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.render(c, resilience.NewBadRequestError("limit must be a positive integer", err))
			return
		}
		params.Limit = limit
	}
	for key, values := range c.Request.URL.Query() {
		if listControls[key] || len(values) == 0 {
			continue
		}
		params.Filters[key] = values[0]
	}

	rows, err := h.svc.List(c.Request.Context(), c.Param("resource"), params)
	if err != nil {
		h.render(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

// Get returns one row.
// GET /api/v1/:resource/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	row, err := h.svc.Get(c.Request.Context(), c.Param("resource"), id)
	if err != nil {
		h.render(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": row})
}

// Create inserts a row.
// POST /api/v1/:resource
func (h *Handler) Create(c *gin.Context) {
	payload, ok := h.bind(c)
	if !ok {
		return
	}
	row, err := h.svc.Create(c.Request.Context(), c.Param("resource"), payload)
	if err != nil {
		h.render(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": row})
}

// Update patches a row.
// PUT /api/v1/:resource/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	payload, ok := h.bind(c)
	if !ok {
		return
	}
	row, err := h.svc.Update(c.Request.Context(), c.Param("resource"), id, payload)
	if err != nil {
		h.render(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": row})
}

// Delete removes a row.
// DELETE /api/v1/:resource/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), c.Param("resource"), id); err != nil {
		h.render(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) id(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		h.render(c, resilience.NewBadRequestError(msgInvalidID, err))
		return 0, false
	}
	return id, true
}

func (h *Handler) bind(c *gin.Context) (interface{}, bool) {
	payload, err := h.svc.NewPayload(c.Param("resource"))
	if err != nil {
		h.render(c, err)
		return nil, false
	}
	if err := c.ShouldBindJSON(payload); err != nil {
		h.logger.Debug("Rejected record payload", zap.String("resource", c.Param("resource")), zap.Error(err))
		h.render(c, resilience.NewBadRequestError(msgInvalidRequest, err))
		return nil, false
	}
	return payload, true
}
