package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/pricing"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func getCartHandler(svc *cart.Service, taxRate float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := identity(c)
		if !ok {
			return
		}

		method := c.DefaultQuery("shipping_method", "standard")
		if !pricing.ValidMethod(method) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipping_method", "field": "shipping_method"})
			return
		}

		crt, err := svc.Get(c.Request.Context(), owner)
		if err != nil {
			writeDomainErr(c, err)
			return
		}

		subtotal := crt.Subtotal().Round(2)
		tax := pricing.Tax(subtotal, taxRate)
		shipping, err := pricing.Shipping(subtotal, method)
		if err != nil {
			writeDomainErr(c, err)
			return
		}
		total := decimal.Sum(subtotal, tax, shipping)

		c.JSON(http.StatusOK, gin.H{
			"cart":     crt,
			"subtotal": subtotal.StringFixed(2),
			"tax":      tax.StringFixed(2),
			"shipping": shipping.StringFixed(2),
			"total":    total.StringFixed(2),
		})
	}
}

func addCartItemHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := identity(c)
		if !ok {
			return
		}

		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.ProductID == "" || req.VariantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_id and variant_id are required"})
			return
		}
		if req.Quantity < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be at least 1", "field": "quantity"})
			return
		}

		if err := svc.AddItem(c.Request.Context(), owner, req.ProductID, req.VariantID, req.Quantity); err != nil {
			writeDomainErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "added"})
	}
}

func updateCartItemHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := identity(c)
		if !ok {
			return
		}

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required", "field": "quantity"})
			return
		}
		if *req.Quantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative", "field": "quantity"})
			return
		}

		if err := svc.UpdateQuantity(c.Request.Context(), owner, c.Param("id"), *req.Quantity); err != nil {
			writeDomainErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	}
}

func removeCartItemHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := identity(c)
		if !ok {
			return
		}
		if err := svc.RemoveItem(c.Request.Context(), owner, c.Param("id")); err != nil {
			writeDomainErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "removed"})
	}
}

func clearCartHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := identity(c)
		if !ok {
			return
		}
		if err := svc.Clear(c.Request.Context(), owner); err != nil {
			writeDomainErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}
