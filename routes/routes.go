package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/luxurytech30-cpu/meiza-font/controllers"
	"github.com/luxurytech30-cpu/meiza-font/middleware"
)

func RegisterRoutes(r *gin.Engine, ctrl *controllers.StorefrontController, jwtSecret string, limiter *middleware.RateLimiter) {
	r.GET("/health", ctrl.Health)

	bff := r.Group("/bff")
	bff.Use(middleware.IdentityMiddleware(jwtSecret))
	{
		// Catalog
		bff.GET("/products", ctrl.ListProducts)
		bff.GET("/products/featured", ctrl.ListFeatured)
		bff.GET("/products/:id", ctrl.GetProduct)
		bff.GET("/categories", ctrl.ListCategories)

		// Auth
		bff.POST("/auth/login", ctrl.Login)
		bff.POST("/auth/register", ctrl.Register)
		bff.POST("/auth/logout", ctrl.Logout)
		bff.GET("/auth/me", ctrl.Me)
		bff.PUT("/auth/me", ctrl.UpdateProfile)

		// Order history
		bff.GET("/orders", ctrl.ListOrders)
		bff.GET("/orders/:id", ctrl.GetOrder)

		bff.GET("/cart", ctrl.GetCart)
	}

	// Cart and checkout mutations are rate limited per shopper
	mutations := bff.Group("")
	if limiter != nil {
		mutations.Use(limiter.Middleware())
	}
	{
		mutations.POST("/cart/items", ctrl.AddItem)
		mutations.PATCH("/cart/items/:id", ctrl.UpdateItem)
		mutations.DELETE("/cart/items/:id", ctrl.RemoveItem)
		mutations.DELETE("/cart", ctrl.ClearCart)
		mutations.POST("/checkout", ctrl.Checkout)
	}
}
