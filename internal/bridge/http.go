package bridge

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Mount adds POST /<method> to rg for every binding. The invocation
// outlives the request so a dropped client does not kill a running action.
func (b *Bridge) Mount(rg *gin.RouterGroup) {
	for method, fn := range b.Functions() {
		fn := fn
		rg.POST("/"+method, func(c *gin.Context) {
			ctx := context.WithoutCancel(c.Request.Context())
			c.String(http.StatusOK, <-fn(ctx))
		})
	}
}
