// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"

	"github.com/stratastor/netfix/internal/constants"
	"github.com/stratastor/netfix/pkg/netfix"
	"github.com/stratastor/netfix/pkg/netfix/api"
)

func registerFixRoutes(engine *gin.Engine, l logger.Logger) error {
	manager := netfix.NewManager(l)
	handler := api.NewFixHandler(manager, l)

	group := engine.Group(constants.APINetfix)
	handler.RegisterRoutes(group)
	return nil
}
