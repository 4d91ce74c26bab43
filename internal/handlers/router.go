package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry/internal/account"
	"laundry/internal/catalog"
	"laundry/internal/contact"
	"laundry/internal/middleware"
	"laundry/internal/models"
	"laundry/internal/orders"
	"laundry/internal/ratelimit"
	"laundry/internal/security"
	"laundry/internal/uploads"
)

// Deps is everything the HTTP surface needs. Services are constructed by
// the caller so tests can wire in-memory stores.
type Deps struct {
	Accounts *account.Service
	Catalog  *catalog.Service
	Orders   *orders.Service
	Contacts *contact.Service
	Images   *uploads.ImageStore
	Tokens   security.TokenVerifier

	LoginLimiter ratelimit.Limiter
	Throttle     *ratelimit.Throttle

	Cookies     CookieConfig
	CORSOrigins []string
	PublicDir   string
	Ping        Pinger
	Log         logrus.FieldLogger
}

func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		recovery(log),
		middleware.CORS(d.CORSOrigins),
	)
	if d.PublicDir != "" {
		r.Static("/public", d.PublicDir)
	}

	var throttle gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.Throttle != nil {
		throttle = d.Throttle.Handler()
	}
	authGuard := middleware.AuthGuard(d.Tokens)

	r.GET("/health", Health(d.Ping, log))

	authLog := log.WithField("area", "auth")
	auth := r.Group("/auth")
	{
		auth.POST("/register", throttle, Register(d.Accounts, d.Cookies, authLog))
		auth.POST("/login", ratelimit.Middleware(d.LoginLimiter, ratelimit.ByClientIP("login"), authLog), Login(d.Accounts, d.Cookies, authLog))
		auth.POST("/refresh", throttle, Refresh(d.Accounts, d.Cookies, authLog))
		auth.POST("/logout", Logout(d.Accounts, d.Cookies, authLog))
		auth.PUT("/change-password", authGuard, ChangePassword(d.Accounts, authLog))
	}

	userLog := log.WithField("area", "address")
	user := r.Group("/auth/user", authGuard)
	{
		user.GET("", GetUser(d.Accounts, authLog))
		user.PUT("", UpdateUser(d.Accounts, authLog))
		user.POST("/profile-image", UploadProfileImage(d.Accounts, d.Images, authLog))
		user.GET("/addresses", GetUserAddresses(d.Accounts, userLog))
		user.POST("/addresses", CreateUserAddress(d.Accounts, userLog))
		user.DELETE("/addresses/:id", DeleteUserAddress(d.Accounts, userLog))
		user.PUT("/addresses/:id/default", SetDefaultUserAddress(d.Accounts, userLog))
	}

	packageLog := log.WithField("area", "package")
	r.GET("/categories", GetCategories())
	r.GET("/packages", GetPackages(d.Catalog, packageLog))
	r.GET("/packages/:id", GetPackage(d.Catalog, packageLog))

	orderLog := log.WithField("area", "order")
	userOrders := r.Group("/orders", authGuard)
	{
		userOrders.POST("", CreateOrder(d.Orders, orderLog))
		userOrders.GET("", GetOrders(d.Orders, orderLog))
		userOrders.GET("/:id", GetOrder(d.Orders, orderLog))
		userOrders.PUT("/:id/cancel", CancelOrder(d.Orders, orderLog))
	}

	contactLog := log.WithField("area", "contact")
	r.POST("/contact", throttle, SubmitContact(d.Contacts, contactLog))

	admin := r.Group("/admin", authGuard, middleware.Authorize(models.RoleAdmin))
	{
		admin.GET("/packages", GetAllPackages(d.Catalog, packageLog))
		admin.POST("/packages", CreatePackage(d.Catalog, packageLog))
		admin.PUT("/packages/:id", UpdatePackage(d.Catalog, packageLog))
		admin.DELETE("/packages/:id", DeletePackage(d.Catalog, packageLog))

		admin.GET("/orders", GetAllOrders(d.Orders, orderLog))
		admin.PUT("/orders/:id/status", UpdateOrderStatus(d.Orders, orderLog))
		admin.DELETE("/orders/:id", DeleteOrder(d.Orders, orderLog))

		admin.GET("/contacts", GetContacts(d.Contacts, contactLog))
		admin.PUT("/contacts/:id/read", MarkContactRead(d.Contacts, contactLog))
		admin.DELETE("/contacts/:id", DeleteContact(d.Contacts, contactLog))

		admin.GET("/users", GetUsers(d.Accounts, authLog))
		admin.PUT("/users/:id/role", UpdateUserRole(d.Accounts, authLog))
	}

	return r
}
