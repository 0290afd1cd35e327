package routes

import (
	"net/http"

	"storefront/ratelim"

	"github.com/julienschmidt/httprouter"
)

// RoutesWrapper registers every route on router.
func RoutesWrapper(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	AddSystemRoutes(router)
	AddStaticRoutes(router)
	AddAuthRoutes(router, rateLimiter)
	AddProductRoutes(router)
	AddCartRoutes(router)
	AddOrderRoutes(router)
	AddWishlistRoutes(router)
	AddNotificationRoutes(router)
	AddPaymentCardRoutes(router)
	AddAdminRoutes(router)

	router.NotFound = http.HandlerFunc(notFound)
	router.MethodNotAllowed = http.HandlerFunc(methodNotAllowed)
}
