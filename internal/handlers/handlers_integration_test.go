package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"lapak/internal/gateway"
	"lapak/internal/handlers"
	"lapak/internal/middleware"
	"lapak/internal/models"
	"lapak/internal/repositories"
	"lapak/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testWebhookSecret = "test_webhook_secret"

var dbCounter int64

// stubProvider is a canned payment provider for integration tests.
type stubProvider struct {
	nextID int64
	fail   bool
}

func (p *stubProvider) CreateProviderOrder(_ context.Context, _ int64, _ string, _ string) (string, error) {
	if p.fail {
		return "", fmt.Errorf("%w: connection refused", models.ErrProviderUnavailable)
	}
	return fmt.Sprintf("prov-test-%d", atomic.AddInt64(&p.nextID, 1)), nil
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and the
// full checkout/order/payment wiring.
func setupApp(t *testing.T, provider *stubProvider) *fiber.App {
	t.Helper()

	// Configure Viper for testing
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	// Each test gets its own named in-memory SQLite database.
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.LineItem{},
		&models.Cart{},
		&models.CartItem{},
		&models.Notification{},
	)
	assert.NoError(t, err)

	// Initialize Repositories
	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	notificationRepo := repositories.NewGORMNotificationRepository(db)

	seedProductsForTest(t, productRepo)

	// Initialize Services (nil RabbitMQ client: notifications are log-only)
	notificationService := services.NewNotificationService(notificationRepo, nil)
	inventoryService := services.NewInventoryService(productRepo, notificationService)
	orderService := services.NewOrderService(orderRepo, productRepo, inventoryService, notificationService)
	checkoutService := services.NewCheckoutService(orderService, inventoryService, cartRepo, provider, time.Second)
	paymentService := services.NewPaymentService(orderRepo, cartRepo, inventoryService, notificationService, testWebhookSecret)
	productService := services.NewProductService(productRepo)

	// Initialize Handlers
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, paymentService)
	orderHandler := handlers.NewOrderHandler(orderService, 30*time.Minute)
	productHandler := handlers.NewProductHandler(productService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	app := fiber.New()

	apiV1 := app.Group("/api/v1")
	checkoutHandler.RegisterWebhookRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(jwtSecret))
	checkoutHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)
	productHandler.RegisterRoutes(protected)
	notificationHandler.RegisterRoutes(protected)

	return app
}

// seedProductsForTest populates the catalog for tests.
func seedProductsForTest(t *testing.T, repo repositories.ProductRepository) {
	t.Helper()
	products := []models.Product{
		{ID: "prod-1", Name: "Test Laptop", Description: "For testing purposes", Category: "electronics", Price: 100000, Stock: 5, TrackInventory: true, LowStockThreshold: 1},
		{ID: "prod-2", Name: "Test Monitor", Description: "Another test item", Category: "electronics", Price: 20000, Stock: 10, TrackInventory: true, LowStockThreshold: 2},
	}
	for i := range products {
		assert.NoError(t, repo.Create(&products[i]))
	}
}

// makeToken issues a JWT the way the auth service would.
func makeToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": "testuser",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(viper.GetString("JWT_SECRET")))
	assert.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1) // -1 for no timeout
	assert.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func productStock(t *testing.T, app *fiber.App, token, productID string) int {
	t.Helper()
	resp := doJSON(t, app, http.MethodGet, "/api/v1/products/"+productID, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var product models.Product
	decodeBody(t, resp, &product)
	return product.Stock
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestCheckoutRequiresAuth(t *testing.T) {
	app := setupApp(t, &stubProvider{})

	resp := doJSON(t, app, http.MethodPost, "/api/v1/checkout", "", map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": "prod-1", "quantity": 1}},
		"currency": "IDR",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestCheckoutVerifyAndCancelFlow(t *testing.T) {
	app := setupApp(t, &stubProvider{})
	token := makeToken(t, "user-1")

	// --- Checkout ---
	resp := doJSON(t, app, http.MethodPost, "/api/v1/checkout", token, map[string]interface{}{
		"items": []map[string]interface{}{
			{"productId": "prod-1", "quantity": 2},
			{"product": map[string]interface{}{"_id": "prod-2"}, "quantity": 1},
		},
		"shipping_address": map[string]string{"line1": "Jl. Merdeka 1", "city": "Jakarta", "country": "ID"},
		"currency":         "IDR",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var checkout services.CheckoutResult
	decodeBody(t, resp, &checkout)
	assert.NotEmpty(t, checkout.OrderID)
	assert.Equal(t, "prov-test-1", checkout.ProviderOrderID)
	assert.Equal(t, int64(2*100000+20000), checkout.Amount)

	// Checkout leaves stock untouched.
	assert.Equal(t, 5, productStock(t, app, token, "prod-1"))

	// --- Verify payment (provider webhook) ---
	signature := gateway.ComputeSignature([]byte(testWebhookSecret), checkout.ProviderOrderID, "pay-1")
	resp = doJSON(t, app, http.MethodPost, "/api/v1/checkout/verify", "", map[string]string{
		"provider_order_id":   checkout.ProviderOrderID,
		"provider_payment_id": "pay-1",
		"signature":           signature,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var verify map[string]string
	decodeBody(t, resp, &verify)
	assert.Equal(t, "confirmed", verify["status"])

	assert.Equal(t, 3, productStock(t, app, token, "prod-1"))
	assert.Equal(t, 9, productStock(t, app, token, "prod-2"))

	// --- Webhook redelivery is a no-op success ---
	resp = doJSON(t, app, http.MethodPost, "/api/v1/checkout/verify", "", map[string]string{
		"provider_order_id":   checkout.ProviderOrderID,
		"provider_payment_id": "pay-1",
		"signature":           signature,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 3, productStock(t, app, token, "prod-1"))

	// --- Cancel restores the committed stock ---
	resp = doJSON(t, app, http.MethodPost, "/api/v1/orders/"+checkout.OrderID+"/cancel", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var cancel map[string]string
	decodeBody(t, resp, &cancel)
	assert.Equal(t, "cancelled", cancel["status"])

	assert.Equal(t, 5, productStock(t, app, token, "prod-1"))
	assert.Equal(t, 10, productStock(t, app, token, "prod-2"))

	// --- Cancelling a terminal order is rejected ---
	resp = doJSON(t, app, http.MethodPost, "/api/v1/orders/"+checkout.OrderID+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

// A provider outage surfaces as 502 and leaves the order pending with
// nothing committed.
func TestCheckoutProviderOutage(t *testing.T) {
	app := setupApp(t, &stubProvider{fail: true})
	token := makeToken(t, "user-1")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/checkout", token, map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": "prod-1", "quantity": 1}},
		"currency": "IDR",
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 5, productStock(t, app, token, "prod-1"))

	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/stale?age=0s", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var stale []models.Order
	decodeBody(t, resp, &stale)
	assert.Len(t, stale, 1)
}

func TestWebhookSignatureMismatchCancelsOrder(t *testing.T) {
	app := setupApp(t, &stubProvider{})
	token := makeToken(t, "user-1")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/checkout", token, map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": "prod-1", "quantity": 1}},
		"currency": "IDR",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var checkout services.CheckoutResult
	decodeBody(t, resp, &checkout)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/checkout/verify", "", map[string]string{
		"provider_order_id":   checkout.ProviderOrderID,
		"provider_payment_id": "pay-1",
		"signature":           "forged",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/"+checkout.OrderID, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var order models.Order
	decodeBody(t, resp, &order)
	assert.Equal(t, models.StatusCancelled, order.Status)
	assert.NotEmpty(t, order.FailureReason)

	// Stock was never committed for the pending order.
	assert.Equal(t, 5, productStock(t, app, token, "prod-1"))
}

func TestOperatorStatusTransitions(t *testing.T) {
	app := setupApp(t, &stubProvider{})
	token := makeToken(t, "user-1")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/checkout", token, map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": "prod-1", "quantity": 1}},
		"currency": "IDR",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var checkout services.CheckoutResult
	decodeBody(t, resp, &checkout)

	// Jumping straight from pending to delivered violates the table.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/orders/"+checkout.OrderID+"/status", token, map[string]string{
		"status": "delivered",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Confirm via webhook, then walk the fulfilment states.
	signature := gateway.ComputeSignature([]byte(testWebhookSecret), checkout.ProviderOrderID, "pay-1")
	resp = doJSON(t, app, http.MethodPost, "/api/v1/checkout/verify", "", map[string]string{
		"provider_order_id":   checkout.ProviderOrderID,
		"provider_payment_id": "pay-1",
		"signature":           signature,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	for _, status := range []string{"processing", "shipped", "delivered"} {
		resp = doJSON(t, app, http.MethodPut, "/api/v1/orders/"+checkout.OrderID+"/status", token, map[string]string{
			"status": status,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestStaleOrdersQuery(t *testing.T) {
	app := setupApp(t, &stubProvider{})
	token := makeToken(t, "user-1")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/checkout", token, map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": "prod-1", "quantity": 1}},
		"currency": "IDR",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// With a zero threshold the fresh pending order is already stale.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/stale?age=0s", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var stale []models.Order
	decodeBody(t, resp, &stale)
	assert.Len(t, stale, 1)
	assert.Equal(t, models.StatusPending, stale[0].Status)
}

func TestManualRefundSurfacesInNotifications(t *testing.T) {
	app := setupApp(t, &stubProvider{})
	token := makeToken(t, "user-1")

	// Order the full remaining stock...
	resp := doJSON(t, app, http.MethodPost, "/api/v1/checkout", token, map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": "prod-1", "quantity": 5}},
		"currency": "IDR",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var first services.CheckoutResult
	decodeBody(t, resp, &first)

	// ...and a competing order for part of it, which confirms first.
	token2 := makeToken(t, "user-2")
	resp = doJSON(t, app, http.MethodPost, "/api/v1/checkout", token2, map[string]interface{}{
		"items":    []map[string]interface{}{{"productId": "prod-1", "quantity": 2}},
		"currency": "IDR",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var second services.CheckoutResult
	decodeBody(t, resp, &second)

	sig2 := gateway.ComputeSignature([]byte(testWebhookSecret), second.ProviderOrderID, "pay-2")
	resp = doJSON(t, app, http.MethodPost, "/api/v1/checkout/verify", "", map[string]string{
		"provider_order_id":   second.ProviderOrderID,
		"provider_payment_id": "pay-2",
		"signature":           sig2,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The first order's payment now confirms against drained stock.
	sig1 := gateway.ComputeSignature([]byte(testWebhookSecret), first.ProviderOrderID, "pay-1")
	resp = doJSON(t, app, http.MethodPost, "/api/v1/checkout/verify", "", map[string]string{
		"provider_order_id":   first.ProviderOrderID,
		"provider_payment_id": "pay-1",
		"signature":           sig1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/"+first.OrderID, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var order models.Order
	decodeBody(t, resp, &order)
	assert.Equal(t, models.StatusCancelled, order.Status)
	assert.True(t, order.RequiresManualRefund)

	// The condition reaches the operator notification feed.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/notifications/?unread=true", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var notifications []models.Notification
	decodeBody(t, resp, &notifications)
	found := false
	for _, n := range notifications {
		if n.Type == models.NotificationManualRefund && n.OrderID == order.ID {
			found = true
		}
	}
	assert.True(t, found, "expected a manual-refund notification for order %s", order.ID)
}
