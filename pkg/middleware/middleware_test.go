package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/optionpricing/pkg/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_PropagatesToContext(t *testing.T) {
	r := gin.New()
	r.Use(GinRequestIDMiddleware())
	var seenReq, seenTrace string
	r.GET("/ping", func(c *gin.Context) {
		seenReq = logger.RequestID(c.Request.Context())
		seenTrace = logger.TraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderTraceID, "trace-abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seenTrace != "trace-abc" {
		t.Fatalf("trace id: %q", seenTrace)
	}
	if seenReq == "" || rec.Header().Get(HeaderRequestID) != seenReq {
		t.Fatalf("request id not echoed: ctx=%q header=%q", seenReq, rec.Header().Get(HeaderRequestID))
	}
}

func TestRecovery_Returns500(t *testing.T) {
	r := gin.New()
	r.Use(GinRequestIDMiddleware(), GinRecoveryMiddleware())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 2}
	r := gin.New()
	r.Use(RateLimitMiddleware(ratelimit.NewLocalRateLimiter(), cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	got := make([]int, 3)
	for i := range got {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		got[i] = rec.Code
	}
	if got[0] != http.StatusOK || got[1] != http.StatusOK || got[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes: %v", got)
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(ratelimit.NewLocalRateLimiter(), config.RateLimitConfig{}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	for range 5 {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected: %d", rec.Code)
		}
	}
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := metrics.New("pricing")
	r := gin.New()
	r.Use(GinMetricsMiddleware(m))
	r.GET("/results/:symbol", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/results/AAPL", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/results/MSFT", nil))

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/results/:symbol", "200"))
	if got != 2 {
		t.Fatalf("requests under template: got=%v want=2", got)
	}
}

func TestGRPCRecovery(t *testing.T) {
	intercept := GRPCRecoveryInterceptor()
	_, err := intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(context.Context, any) (any, error) { panic("boom") })
	if status.Code(err) != codes.Internal {
		t.Fatalf("want Internal, got %v", err)
	}
}

func TestGRPCLogging_TraceFromMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-trace-id", "t-1"))
	var seen string
	_, err := GRPCLoggingInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(ctx context.Context, _ any) (any, error) {
			seen = logger.TraceID(ctx)
			return nil, nil
		})
	if err != nil || seen != "t-1" {
		t.Fatalf("trace=%q err=%v", seen, err)
	}
}
