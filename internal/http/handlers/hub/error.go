package hub

import (
	handlershared "github.com/hubflow-next/internal/http/handlers/shared"
	"github.com/hubflow-next/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondHubFlowError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondHubFlowError(c, err, fallbackKey)
}

func currentActor(c *gin.Context) (service.Actor, bool) {
	return handlershared.CurrentActor(c)
}

func parseOrderID(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "id", "error.order_id_invalid")
}
