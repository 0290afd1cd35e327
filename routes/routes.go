package routes

import (
	"net/http"

	"storefront/admin"
	"storefront/analytics"
	"storefront/auth"
	"storefront/cart"
	"storefront/globals"
	"storefront/metrics"
	"storefront/middleware"
	"storefront/notifications"
	"storefront/orders"
	"storefront/paycards"
	"storefront/products"
	"storefront/ratelim"
	"storefront/reviews"
	"storefront/wishlist"

	"github.com/julienschmidt/httprouter"
)

func public(route string, h middleware.HandlerFunc) httprouter.Handle {
	return metrics.Instrument(route, middleware.Handle(h))
}

func user(route string, h middleware.HandlerFunc) httprouter.Handle {
	return metrics.Instrument(route, middleware.Authenticate(middleware.Handle(h)))
}

func adminOnly(route string, h middleware.HandlerFunc) httprouter.Handle {
	return metrics.Instrument(route, middleware.Admin(middleware.Handle(h)))
}

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/uploads/*filepath", http.Dir(globals.UploadDir))
}

func AddSystemRoutes(router *httprouter.Router) {
	router.GET("/health", Health)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())
}

func AddAuthRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rateLimiter.Limit(public("/api/auth/register", auth.Register)))
	router.POST("/api/auth/login", rateLimiter.Limit(public("/api/auth/login", auth.Login)))
	router.POST("/api/auth/logout", user("/api/auth/logout", auth.Logout))

	router.GET("/api/auth/profile", user("/api/auth/profile", auth.GetProfile))
	router.PUT("/api/auth/profile", user("/api/auth/profile", auth.UpdateProfile))
	router.PUT("/api/auth/update-profile", user("/api/auth/update-profile", auth.UpdateProfile))
	router.PUT("/api/auth/change-password", rateLimiter.Limit(user("/api/auth/change-password", auth.ChangePassword)))

	router.POST("/api/auth/addresses", user("/api/auth/addresses", auth.AddAddress))
	router.GET("/api/auth/addresses", user("/api/auth/addresses", auth.GetAddresses))
	router.PUT("/api/auth/addresses/:id", user("/api/auth/addresses/:id", auth.UpdateAddress))
	router.DELETE("/api/auth/addresses/:id", user("/api/auth/addresses/:id", auth.DeleteAddress))
}

func AddProductRoutes(router *httprouter.Router) {
	router.GET("/api/products", public("/api/products", products.GetProducts))

	router.GET("/api/products/:id", byName("id", map[string]httprouter.Handle{
		"featured":   public("/api/products/featured", products.GetFeatured),
		"categories": public("/api/products/categories", products.GetCategories),
	}, public("/api/products/:id", products.GetProduct)))

	router.GET("/api/products/:id/:sub", bySegments("id", "sub",
		map[string]staticPrefix{
			"category": {param: "category", handler: public("/api/products/category/:category", products.GetByCategory)},
			"search":   {param: "keyword", handler: public("/api/products/search/:keyword", products.Search)},
		},
		map[string]httprouter.Handle{
			"reviews": public("/api/products/:id/reviews", products.GetReviews),
		},
	))

	router.POST("/api/products/:id/review", user("/api/products/:id/review", reviews.AddReview))
}

func AddCartRoutes(router *httprouter.Router) {
	router.GET("/api/cart", user("/api/cart", cart.GetCart))
	router.POST("/api/cart/add", user("/api/cart/add", cart.AddToCart))
	router.PUT("/api/cart/update/:itemId", user("/api/cart/update/:itemId", cart.UpdateCartItem))
	router.DELETE("/api/cart/remove/:itemId", user("/api/cart/remove/:itemId", cart.RemoveCartItem))
	router.DELETE("/api/cart/clear", user("/api/cart/clear", cart.ClearCart))
	router.POST("/api/cart/merge", user("/api/cart/merge", cart.MergeCart))
}

func AddOrderRoutes(router *httprouter.Router) {
	router.POST("/api/orders/create", user("/api/orders/create", orders.CreateOrder))

	router.GET("/api/orders/:id", byName("id", map[string]httprouter.Handle{
		"my-orders": user("/api/orders/my-orders", orders.GetMyOrders),
	}, user("/api/orders/:id", orders.GetOrder)))

	router.GET("/api/orders/:id/:sub", bySegments("id", "sub",
		map[string]staticPrefix{
			"track": {param: "id", handler: public("/api/orders/track/:id", orders.TrackOrder)},
		},
		map[string]httprouter.Handle{
			"invoice": user("/api/orders/:id/invoice", orders.GetInvoice),
			"qr":      user("/api/orders/:id/qr", orders.GetTrackingQR),
		},
	))

	router.PUT("/api/orders/:id/cancel", user("/api/orders/:id/cancel", orders.CancelOrder))
}

func AddWishlistRoutes(router *httprouter.Router) {
	router.GET("/api/wishlist", user("/api/wishlist", wishlist.GetWishlist))
	router.POST("/api/wishlist", user("/api/wishlist", wishlist.AddToWishlist))
	router.DELETE("/api/wishlist", user("/api/wishlist", wishlist.ClearWishlist))
	router.GET("/api/wishlist/check/:productId", user("/api/wishlist/check/:productId", wishlist.CheckWishlist))
	router.DELETE("/api/wishlist/:productId", user("/api/wishlist/:productId", wishlist.RemoveFromWishlist))
}

func AddNotificationRoutes(router *httprouter.Router) {
	router.GET("/api/notifications", user("/api/notifications", notifications.GetNotifications))
	router.GET("/api/notifications/unread-count", user("/api/notifications/unread-count", notifications.UnreadCount))
	router.PUT("/api/notifications", user("/api/notifications", notifications.MarkAllRead))
	router.PUT("/api/notifications/:id/read", user("/api/notifications/:id/read", notifications.MarkRead))
	router.DELETE("/api/notifications/:id", user("/api/notifications/:id", notifications.DeleteNotification))

	router.GET("/api/notifications/ws", middleware.Authenticate(notifications.WebSocketHandler(notifications.Live)))
}

func AddPaymentCardRoutes(router *httprouter.Router) {
	router.GET("/api/payment-cards", user("/api/payment-cards", paycards.GetCards))
	router.POST("/api/payment-cards", user("/api/payment-cards", paycards.AddCard))
	router.PUT("/api/payment-cards/:id", user("/api/payment-cards/:id", paycards.UpdateCard))
	router.PUT("/api/payment-cards/:id/default", user("/api/payment-cards/:id/default", paycards.SetDefaultCard))
	router.DELETE("/api/payment-cards/:id", user("/api/payment-cards/:id", paycards.DeleteCard))
}

func AddAdminRoutes(router *httprouter.Router) {
	router.POST("/api/admin/products", adminOnly("/api/admin/products", admin.CreateProduct))
	router.GET("/api/admin/products", adminOnly("/api/admin/products", admin.ListProducts))
	router.GET("/api/admin/products/:id", adminOnly("/api/admin/products/:id", admin.GetProduct))
	router.PUT("/api/admin/products/:id", adminOnly("/api/admin/products/:id", admin.UpdateProduct))
	router.DELETE("/api/admin/products/:id", adminOnly("/api/admin/products/:id", admin.DeleteProduct))
	router.POST("/api/admin/products/:id/images", adminOnly("/api/admin/products/:id/images", admin.UploadProductImages))
	router.GET("/api/admin/export/products", adminOnly("/api/admin/export/products", admin.ExportProducts))

	router.GET("/api/admin/orders", adminOnly("/api/admin/orders", admin.ListOrders))
	router.GET("/api/admin/orders/:id", adminOnly("/api/admin/orders/:id", admin.GetOrder))
	router.PUT("/api/admin/orders/:id/status", adminOnly("/api/admin/orders/:id/status", admin.UpdateOrderStatus))

	router.GET("/api/admin/users", adminOnly("/api/admin/users", admin.ListUsers))
	router.GET("/api/admin/users/:id", adminOnly("/api/admin/users/:id", admin.GetUser))
	router.PUT("/api/admin/users/:id/role", adminOnly("/api/admin/users/:id/role", admin.UpdateUserRole))
	router.PUT("/api/admin/users/:id/status", adminOnly("/api/admin/users/:id/status", admin.UpdateUserStatus))

	router.GET("/api/admin/analytics/dashboard", adminOnly("/api/admin/analytics/dashboard", analytics.GetDashboard))
}
