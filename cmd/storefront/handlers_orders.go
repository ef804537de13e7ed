package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/order"
)

func getOrderHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeDomainErr(c, err)
			return
		}
		// Orders belonging to an account are only visible to that account;
		// guest orders are reachable by id alone.
		if o.UserID != "" && o.UserID != httpx.UserID(c) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if items == nil {
			items = []order.Item{}
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "items": items})
	}
}

func listOrdersHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))

		orders, err := repo.ListByUser(c.Request.Context(), httpx.UserID(c), limit, offset)
		if err != nil {
			writeDomainErr(c, err)
			return
		}
		if orders == nil {
			orders = []order.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": orders})
	}
}
