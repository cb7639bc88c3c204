package httpapi

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"bodacover-platform/internal/config"
	"bodacover-platform/internal/escrow"
	"bodacover-platform/internal/gateway"
	"bodacover-platform/internal/payment"
	"bodacover-platform/internal/wallet"
)

func testRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/gateway/payment", h.PaymentCallback)
	r.POST("/v1/payments", h.InitiatePayment)
	r.GET("/healthz", h.Healthz)
	return r
}

func TestPaymentCallbackRejectsUnparseableBody(t *testing.T) {
	h := Handlers{Gateway: gateway.NewSimulator(config.GatewayConfig{}, slog.Default())}
	r := testRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway/payment", strings.NewReader("not json"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestInitiatePaymentValidatesInput(t *testing.T) {
	r := testRouter(Handlers{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments", strings.NewReader(`{"rider_id":"r1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHealthzWithoutDB(t *testing.T) {
	r := testRouter(Handlers{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRespondServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", payment.ErrInvalidInput, http.StatusBadRequest},
		{"not found", payment.ErrRequestNotFound, http.StatusNotFound},
		{"deposit done", wallet.ErrDepositDone, http.StatusConflict},
		{"batch not approved", escrow.ErrNotApproved, http.StatusConflict},
		{"gateway auth", gateway.ErrAuth, http.StatusBadGateway},
		{"gateway transient", gateway.ErrUnavailable, http.StatusServiceUnavailable},
		{"user cancelled", &gateway.UserError{Code: 1032, Description: "cancelled"}, http.StatusUnprocessableEntity},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondServiceError(c, tt.err)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
