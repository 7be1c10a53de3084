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

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/hatchery-assistant/internal/assistant"
	"github.com/your-org/hatchery-assistant/internal/resilience"
)

// chat handles POST /api/chat
func (s *Server) chat(c *gin.Context) {
	var req assistant.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, resilience.NewBadRequestError("request body must be JSON with a non-empty message", err))
		return
	}

	reply, err := s.assistant.Handle(c.Request.Context(), req)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// probe handles GET /api/chat
func (s *Server) probe(c *gin.Context) {
	c.JSON(http.StatusOK, s.assistant.Probe())
}

// renderError writes the failure envelope with the request id attached
func (s *Server) renderError(c *gin.Context, err error) {
	requestID := c.GetString(ContextRequestIDKey)
	s.errors.LogError(err, c.Request.Method+" "+c.FullPath(), zap.String("request_id", requestID))
	status, body := s.errors.Render(err, requestID)
	c.AbortWithStatusJSON(status, body)
}
