package constants

const (
	AppMain           = "storefront"
	AppCartService    = "cart-service"
	AppProductService = "product-service"
	AppUserService    = "user-service"
	AppGateway        = "api-gateway"
	AppCartCleanup    = "cart-session-cleanup"
	AudienceUser      = "audience-user"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-Id"
	HeaderSessionID     = "X-Session-Id"
	HeaderContentType   = "Content-Type"
	HeaderValueJson     = "application/json"
)
