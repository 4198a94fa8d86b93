package admin

import (
	handlershared "github.com/hubflow-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondHubFlowError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondHubFlowError(c, err, fallbackKey)
}
