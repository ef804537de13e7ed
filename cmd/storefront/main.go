package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/catalog"
	"github.com/MikeMC777/tienda-ecom/internal/chainpay"
	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/order"
	"github.com/MikeMC777/tienda-ecom/internal/payment"
	"github.com/MikeMC777/tienda-ecom/internal/postgres"
)

func main() {
	cfg := config.Load()

	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("postgres connect failed: %v", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	catalogRepo := catalog.NewPGRepo(pool)
	cartRepo := cart.NewPGRepo(pool)
	orderRepo := order.NewPGRepo(pool)
	chainRepo := chainpay.NewPGRepo(pool)

	cartSvc := cart.NewService(cartRepo, catalogRepo, cart.NewCache(rdb, 10*time.Minute))
	finalizer := order.NewFinalizer(orderRepo, cartRepo, catalogRepo, cfg.TaxRate)
	gateway := payment.NewGateway(cfg.GatewayBaseURL, cfg.GatewaySecretKey)
	webhooks := payment.NewWebhookProcessor(orderRepo, payment.NewPGEventStore(pool))
	chain := chainpay.NewService(chainRepo, orderRepo, chainpay.NewRPCClient(cfg.RPCEndpoint))

	router := setupRouter(deps{
		cfg:       cfg,
		rdb:       rdb,
		catalog:   catalogRepo,
		carts:     cartSvc,
		orders:    orderRepo,
		finalizer: finalizer,
		gateway:   gateway,
		webhooks:  webhooks,
		chain:     chain,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("storefront listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("shutdown signal received")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped cleanly")
}
