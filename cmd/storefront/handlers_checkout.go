package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/chainpay"
	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/order"
	"github.com/MikeMC777/tienda-ecom/internal/payment"
	"github.com/MikeMC777/tienda-ecom/internal/pricing"
)

type addressPayload struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

func (a addressPayload) validate() string {
	switch {
	case a.Name == "":
		return "name"
	case a.Line1 == "":
		return "line1"
	case a.City == "":
		return "city"
	case a.PostalCode == "":
		return "postal_code"
	case a.Country == "":
		return "country"
	}
	return ""
}

func (a addressPayload) toAddress() order.Address {
	return order.Address{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

type checkoutRequest struct {
	Email           string          `json:"email"`
	ShippingAddress addressPayload  `json:"shipping_address"`
	BillingAddress  *addressPayload `json:"billing_address"`
	ShippingMethod  string          `json:"shipping_method"`
	PaymentMethod   string          `json:"payment_method"`
}

func checkoutHandler(fin *order.Finalizer, gw *payment.Gateway, chain *chainpay.Service,
	carts *cart.Service, orders order.Repository, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := identity(c)
		if !ok {
			return
		}

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "valid email is required", "field": "email"})
			return
		}
		if !pricing.ValidMethod(req.ShippingMethod) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipping_method", "field": "shipping_method"})
			return
		}
		if req.PaymentMethod != "card" && req.PaymentMethod != "crypto" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment_method must be card or crypto", "field": "payment_method"})
			return
		}
		if field := req.ShippingAddress.validate(); field != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shipping address incomplete", "field": "shipping_address." + field})
			return
		}
		billing := req.ShippingAddress
		if req.BillingAddress != nil {
			if field := req.BillingAddress.validate(); field != "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "billing address incomplete", "field": "billing_address." + field})
				return
			}
			billing = *req.BillingAddress
		}

		o, items, err := fin.Finalize(c.Request.Context(), order.CheckoutInput{
			Owner:           owner,
			Email:           req.Email,
			ShippingAddress: req.ShippingAddress.toAddress(),
			BillingAddress:  billing.toAddress(),
			ShippingMethod:  req.ShippingMethod,
			PaymentMethod:   req.PaymentMethod,
		})
		if err != nil {
			writeDomainErr(c, err)
			return
		}
		carts.InvalidateCache(c.Request.Context(), owner)

		resp := gin.H{"order": o, "items": items}

		switch req.PaymentMethod {
		case "card":
			intent, err := gw.CreatePaymentIntent(c.Request.Context(), o.Total, "usd", o.ID)
			if err != nil {
				// The order exists; the buyer retries payment against it
				// instead of checking out twice.
				log.Printf("[checkout] create intent for %s failed: %v", o.ID, err)
				resp["payment_error"] = "payment initialization failed, retry payment"
				break
			}
			if err := orders.SetPaymentRef(c.Request.Context(), o.ID, intent.ID); err != nil {
				log.Printf("[checkout] store payment ref for %s failed: %v", o.ID, err)
			}
			resp["client_secret"] = intent.ClientSecret

		case "crypto":
			p, err := chain.CreatePayment(c.Request.Context(), o.ID, o.Total, "SOL", cfg.MerchantWallet)
			if err != nil {
				log.Printf("[checkout] create chain payment for %s failed: %v", o.ID, err)
				resp["payment_error"] = "payment initialization failed, retry payment"
				break
			}
			resp["crypto_payment"] = p
		}

		c.JSON(http.StatusCreated, resp)
	}
}
