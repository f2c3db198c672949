package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

func newErrorRouter(err error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorMiddleware(logger.NewNop()))
	r.GET("/", func(c *gin.Context) { c.Error(err) })
	return r
}

func TestErrorMiddleware_MapsAppErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperror.NewNotFound("resume", "x"), http.StatusNotFound},
		{apperror.NewInvalidInput("bad", nil), http.StatusBadRequest},
		{apperror.NewUnauthorized("no", nil), http.StatusUnauthorized},
		{apperror.NewStorageWrite("disk", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		newErrorRouter(tc.err).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		assert.Contains(t, w.Body.String(), `"error"`)
	}
}

func TestSeedTokenMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorMiddleware(logger.NewNop()))
	r.POST("/", SeedTokenMiddleware("tok", logger.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(HeaderSeedToken, "tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(HeaderSeedToken, "tok2")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
