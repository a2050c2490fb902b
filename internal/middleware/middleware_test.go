package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mfi-loan-engine/internal/service"
)

func TestResponseMetaCarriesCacheHitAndTiming(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}

	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if meta == nil {
		t.Fatalf("expected metadata")
	}
	if hit, _ := meta[cacheHitKey].(bool); !hit {
		t.Fatalf("expected cache hit, got %v", meta[cacheHitKey])
	}
	if _, ok := meta[processingMetaKey].(int64); !ok {
		t.Fatalf("expected processing time, got %v", meta[processingMetaKey])
	}
}

func TestExtractMetaEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if meta := ExtractMeta(c); meta != nil {
		t.Fatalf("expected nil metadata, got %v", meta)
	}
	c.Set(requestStartKey, time.Now())
	c.Set(responseMetaKey, map[string]interface{}{})
	if meta := ExtractMeta(c); meta != nil {
		t.Fatalf("expected nil for empty metadata, got %v", meta)
	}
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()

	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/loans/:id/state", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/loans/abc/state", nil))

	if got := metrics.Snapshot().RequestsTotal; got != 1 {
		t.Fatalf("expected one request, got %d", got)
	}
}

func TestMetricsGroupsUnmatchedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()

	router := gin.New()
	router.Use(Metrics(metrics))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/loans/unknown/path", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/other", nil))

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, `path="unmatched"`) {
		t.Fatalf("expected unmatched label in %s", body)
	}
	if strings.Contains(body, "/loans/unknown/path") {
		t.Fatalf("raw path leaked into labels")
	}
}
