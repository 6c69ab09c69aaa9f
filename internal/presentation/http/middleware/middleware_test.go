package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atlasschools/finboard-go/internal/infrastructure/tenant"
	"github.com/atlasschools/finboard-go/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func branchEcho() *gin.Engine {
	r := gin.New()
	r.Use(BranchMiddleware())
	r.GET("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, string(BranchFrom(c)))
	})
	return r
}

func TestBranchFromHeader(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set("X-Branch", "Academy")

	branchEcho().ServeHTTP(w, req)
	assert.Equal(t, "Academy", w.Body.String())
}

func TestBranchFromQueryFallback(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/echo?branch=highschool", nil)

	branchEcho().ServeHTTP(w, req)
	assert.Equal(t, "Highschool", w.Body.String())
}

func TestBranchHeaderWinsOverQuery(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/echo?branch=Academy", nil)
	req.Header.Set("X-Branch", "Highschool")

	branchEcho().ServeHTTP(w, req)
	assert.Equal(t, "Highschool", w.Body.String())
}

func TestBranchDefaultsToPrivate(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/echo", nil)

	branchEcho().ServeHTTP(w, req)
	assert.Equal(t, string(tenant.BranchPrivate), w.Body.String())
}

func withAdminAuth(t *testing.T, password string) func() {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	prevHash, prevSecret := config.AdminPasswordHash, config.JWTSecret
	config.AdminPasswordHash = string(hash)
	config.JWTSecret = "test-secret"
	return func() {
		config.AdminPasswordHash = prevHash
		config.JWTSecret = prevSecret
	}
}

func guardedRouter() *gin.Engine {
	r := gin.New()
	r.Use(AdminAuthMiddleware())
	r.POST("/guarded", func(c *gin.Context) {
		c.String(http.StatusOK, "in")
	})
	return r
}

func TestIssueAndVerifyAdminToken(t *testing.T) {
	restore := withAdminAuth(t, "letmein")
	defer restore()

	token, err := IssueAdminToken("letmein")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	guardedRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIssueAdminTokenRejectsWrongPassword(t *testing.T) {
	restore := withAdminAuth(t, "letmein")
	defer restore()

	_, err := IssueAdminToken("wrong")
	require.Error(t, err)
}

func TestIssueAdminTokenRequiresConfiguration(t *testing.T) {
	prevHash, prevSecret := config.AdminPasswordHash, config.JWTSecret
	config.AdminPasswordHash = ""
	config.JWTSecret = ""
	defer func() {
		config.AdminPasswordHash = prevHash
		config.JWTSecret = prevSecret
	}()

	_, err := IssueAdminToken("anything")
	require.Error(t, err)
}

func TestAdminAuthRejectsMissingAndGarbageTokens(t *testing.T) {
	restore := withAdminAuth(t, "letmein")
	defer restore()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	guardedRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	guardedRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
