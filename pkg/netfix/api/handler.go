// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"

	"github.com/stratastor/netfix/config"
	"github.com/stratastor/netfix/pkg/errors"
	"github.com/stratastor/netfix/pkg/netfix"
	"github.com/stratastor/netfix/pkg/netfix/discovery"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// FixHandler handles REST API requests for fix runs.
type FixHandler struct {
	manager *netfix.Manager
	logger  logger.Logger
}

// APIResponse represents a standardized API response format
type APIResponse struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError represents error information in API responses
type APIError struct {
	Code    int                    `json:"code"`
	Domain  string                 `json:"domain"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

func NewFixHandler(manager *netfix.Manager, logger logger.Logger) *FixHandler {
	return &FixHandler{
		manager: manager,
		logger:  logger,
	}
}

// RegisterRoutes registers the fix-run routes.
func (h *FixHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/run", h.Run)
	router.POST("/discover", h.Discover)
	router.GET("/levels", h.Levels)
}

// runRequest is the POST /run payload.
type runRequest struct {
	Root         string `json:"root" binding:"required"`
	Level        string `json:"level"`
	Workers      int    `json:"workers"`
	DryRun       bool   `json:"dry_run"`
	BackupSuffix string `json:"backup_suffix"`
}

// Run executes a fix run against a mounted guest root.
func (h *FixHandler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, errors.Wrap(err, errors.ServerRequestValidation))
		return
	}
	level, err := types.ParseFixLevel(req.Level)
	if err != nil {
		h.sendError(c, errors.New(errors.ConfigInvalidFixLevel, req.Level))
		return
	}

	report, err := h.manager.Run(c.Request.Context(), netfix.Options{
		Root:         req.Root,
		Level:        level,
		Workers:      req.Workers,
		DryRun:       req.DryRun,
		BackupSuffix: req.BackupSuffix,
	})
	if err != nil {
		h.sendError(c, err)
		return
	}
	h.sendSuccess(c, http.StatusOK, report)
}

// discoverRequest is the POST /discover payload.
type discoverRequest struct {
	Root string `json:"root" binding:"required"`
}

// discoveredFile is the read-only listing entry for one config file.
type discoveredFile struct {
	GuestPath string           `json:"guest_path"`
	Type      types.ConfigType `json:"type"`
	Hash      string           `json:"hash"`
}

// Discover lists configuration files without fixing anything.
func (h *FixHandler) Discover(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, errors.Wrap(err, errors.ServerRequestValidation))
		return
	}

	run := types.NewRunContext(h.logger)
	records, err := discovery.Discover(req.Root, config.GetConfig().Fix.BackupSuffix, run)
	if err != nil {
		h.sendError(c, err)
		return
	}
	files := make([]discoveredFile, 0, len(records))
	for _, rec := range records {
		files = append(files, discoveredFile{
			GuestPath: rec.GuestPath,
			Type:      rec.Type,
			Hash:      rec.Hash,
		})
	}
	h.sendSuccess(c, http.StatusOK, gin.H{"files": files, "count": len(files)})
}

// Levels reports the available fix levels in ascending order.
func (h *FixHandler) Levels(c *gin.Context) {
	h.sendSuccess(c, http.StatusOK, gin.H{
		"levels": []string{
			types.LevelConservative.String(),
			types.LevelModerate.String(),
			types.LevelAggressive.String(),
		},
		"default": types.LevelModerate.String(),
	})
}

// sendSuccess sends a successful response with the standardized format
func (h *FixHandler) sendSuccess(c *gin.Context, statusCode int, result interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Result:  result,
	})
}

// sendError sends an error response with the standardized format
func (h *FixHandler) sendError(c *gin.Context, err error) {
	response := APIResponse{Success: false}

	if nfErr, ok := err.(*errors.NetfixError); ok {
		h.logger.Error("Fix API error",
			"error", err,
			"code", nfErr.Code,
			"domain", nfErr.Domain,
			"path", c.Request.URL.Path)

		response.Error = &APIError{
			Code:    int(nfErr.Code),
			Domain:  string(nfErr.Domain),
			Message: nfErr.Message,
			Details: nfErr.Details,
		}
		if len(nfErr.Metadata) > 0 {
			response.Error.Meta = make(map[string]interface{}, len(nfErr.Metadata))
			for k, v := range nfErr.Metadata {
				response.Error.Meta[k] = v
			}
		}
		c.JSON(nfErr.HTTPStatus, response)
		return
	}

	h.logger.Error("Fix API error", "error", err, "path", c.Request.URL.Path)
	response.Error = &APIError{
		Code:    int(errors.ServerInternalError),
		Domain:  string(errors.DomainServer),
		Message: "Internal server error",
		Details: err.Error(),
	}
	c.JSON(http.StatusInternalServerError, response)
}
