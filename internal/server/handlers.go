package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cbr4l0k/Scoop/internal/invoker"
	"github.com/cbr4l0k/Scoop/internal/storage"
	"github.com/cbr4l0k/Scoop/internal/version"
	"github.com/gin-gonic/gin"
)

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":   version.Version,
		"commit":    version.Commit,
		"buildDate": version.BuildDate,
	})
}

// ToolInfo describes one kind for /api/v1/tools
type ToolInfo struct {
	Kind        string `json:"kind"`
	Binary      string `json:"binary"`
	Target      string `json:"target"`
	Output      string `json:"output"`
	Implemented bool   `json:"implemented"`
	Installed   bool   `json:"installed"`
}

func (s *Server) listTools(c *gin.Context) {
	inv := s.runner.Invoker()
	kinds := invoker.Kinds()
	out := make([]ToolInfo, 0, len(kinds))
	for _, k := range kinds {
		bin := inv.BinaryFor(k)
		_, err := s.lookPath(bin)
		out = append(out, ToolInfo{
			Kind:        string(k),
			Binary:      bin,
			Target:      k.Target().String(),
			Output:      k.Output().String(),
			Implemented: k.Implemented(),
			Installed:   err == nil,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

// InvocationRequest is the body of POST /api/v1/invocations
type InvocationRequest struct {
	Tool     string `json:"tool" binding:"required"`
	Target   string `json:"target" binding:"required"`
	Validate bool   `json:"validate,omitempty"`
}

func (s *Server) createInvocation(c *gin.Context) {
	var req InvocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind, err := invoker.ParseKind(req.Tool)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	var opts []invoker.CallOption
	if req.Validate {
		opts = append(opts, invoker.WithValidation())
	}

	o := s.runner.Run(c.Request.Context(), kind, req.Target, opts...)
	if o.Err != nil {
		body := gin.H{"id": o.ID, "error": o.Err.Error()}
		if o.Result != nil {
			body["result"] = o.Result
		}
		c.JSON(statusFor(o.Err), body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": o.ID, "result": o.Result})
}

func (s *Server) listInvocations(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"invocations": []storage.InvocationRecord{}})
		return
	}

	tool := c.Query("tool")
	if tool != "" {
		kind, err := invoker.ParseKind(tool)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tool = string(kind)
	}

	recs, err := s.history.ListInvocations(c.Request.Context(), tool, c.Query("target"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if recs == nil {
		recs = []storage.InvocationRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"invocations": recs})
}

func (s *Server) getInvocation(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}
	rec, err := s.history.GetInvocation(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invocation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// getInvocationResult serves the saved result file of an invocation
func (s *Server) getInvocationResult(c *gin.Context) {
	if s.history == nil || s.results == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result files are disabled"})
		return
	}
	rec, err := s.history.GetInvocation(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invocation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec.ResultPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no result file was saved for this invocation"})
		return
	}

	ctx := c.Request.Context()
	if ok, err := s.results.Exists(ctx, rec.ResultPath); err != nil || !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result file is missing"})
		return
	}
	raw, err := s.results.Read(ctx, rec.ResultPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// statusFor maps invoker errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, invoker.ErrInvalidTarget), errors.Is(err, invoker.ErrUnknownTool):
		return http.StatusBadRequest
	case errors.Is(err, invoker.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, invoker.ErrToolNotFound):
		return http.StatusFailedDependency
	case errors.Is(err, invoker.ErrToolTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, invoker.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, invoker.ErrToolExecutionFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
