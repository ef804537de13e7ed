package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/catalog"
	"github.com/MikeMC777/tienda-ecom/internal/chainpay"
	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/order"
	"github.com/MikeMC777/tienda-ecom/internal/payment"
)

type deps struct {
	cfg       config.Config
	rdb       *redis.Client
	catalog   catalog.Repository
	carts     *cart.Service
	orders    order.Repository
	finalizer *order.Finalizer
	gateway   *payment.Gateway
	webhooks  *payment.WebhookProcessor
	chain     *chainpay.Service
}

func setupRouter(d deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Session-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.GET("/products", listProductsHandler(d.catalog))
	r.GET("/products/:id", getProductHandler(d.catalog))

	auth := httpx.Auth(d.cfg.JWTSecret, false)
	mutLimit := httpx.RateLimit(d.rdb, 60, time.Minute)

	cartGroup := r.Group("/cart", auth)
	cartGroup.GET("", getCartHandler(d.carts, d.cfg.TaxRate))
	cartGroup.POST("/items", mutLimit, addCartItemHandler(d.carts))
	cartGroup.PUT("/items/:id", mutLimit, updateCartItemHandler(d.carts))
	cartGroup.DELETE("/items/:id", mutLimit, removeCartItemHandler(d.carts))
	cartGroup.DELETE("", mutLimit, clearCartHandler(d.carts))

	r.POST("/checkout", auth, httpx.RateLimit(d.rdb, 10, time.Minute),
		checkoutHandler(d.finalizer, d.gateway, d.chain, d.carts, d.orders, d.cfg))

	authRequired := httpx.Auth(d.cfg.JWTSecret, true)
	r.GET("/orders", authRequired, listOrdersHandler(d.orders))
	r.GET("/orders/:id", auth, getOrderHandler(d.orders))
	r.POST("/orders/:id/crypto/verify", auth, httpx.RateLimit(d.rdb, 10, time.Minute),
		verifyCryptoPaymentHandler(d.chain))

	r.POST("/webhooks/gateway", gatewayWebhookHandler(d.webhooks, d.cfg.GatewayWebhookSecret))

	return r
}
