package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/atlasschools/finboard-go/internal/infrastructure/tenant"
)

const branchContextKey = "branch"

// BranchMiddleware resolves the requested branch and stores it on the gin
// context. The header wins; the query parameter exists for EventSource and
// websocket clients that cannot set custom headers.
func BranchMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Branch")
		if raw == "" {
			raw = c.Query("branch")
		}
		c.Set(branchContextKey, tenant.Normalize(raw))
		c.Next()
	}
}

// BranchFrom reads the resolved branch off the gin context. Requests that
// skipped the middleware resolve to the default branch.
func BranchFrom(c *gin.Context) tenant.Branch {
	if value, ok := c.Get(branchContextKey); ok {
		if branch, ok := value.(tenant.Branch); ok {
			return branch
		}
	}
	return tenant.BranchPrivate
}
