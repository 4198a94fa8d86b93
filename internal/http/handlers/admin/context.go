package admin

import (
	handlershared "github.com/hubflow-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, handlershared.ContextKeyAdminID, "error.unauthorized", "error.unauthorized")
}

func parseHubID(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "id", "error.hub_id_invalid")
}

func parseAdminID(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "id", "error.admin_id_invalid")
}
