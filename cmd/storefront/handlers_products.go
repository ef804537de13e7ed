package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-ecom/internal/catalog"
)

func listProductsHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))

		items, err := repo.List(c.Request.Context(), catalog.Query{
			Q:      c.Query("q"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			writeDomainErr(c, err)
			return
		}
		if items == nil {
			items = []catalog.Product{}
		}
		c.JSON(http.StatusOK, gin.H{"q": c.Query("q"), "limit": limit, "offset": offset, "items": items})
	}
}

func getProductHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		p, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			writeDomainErr(c, err)
			return
		}
		variants, err := repo.ListVariants(c.Request.Context(), id)
		if err != nil {
			writeDomainErr(c, err)
			return
		}
		if variants == nil {
			variants = []catalog.Variant{}
		}
		c.JSON(http.StatusOK, gin.H{"product": p, "variants": variants})
	}
}
