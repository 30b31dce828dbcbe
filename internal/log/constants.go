package log

const (
	KeyAppName            = "app"
	KeyRequestID          = "requestId"
	KeyTraceID            = "traceId"
	KeySpanID             = "spanId"
	KeyProcess            = "process"
	KeyTag                = "tag"
	KeyConfig             = "config"
	KeyLogFile            = "logFile"
	KeyRequest            = "request"
	KeyRequestBody        = "requestBody"
	KeyRequestHeader      = "requestHeader"
	KeyRequestHost        = "host"
	KeyRequestIp          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeyPathValues         = "pathValues"
	KeyStatusCode         = "statusCode"
	KeyUpstream           = "upstream"
	KeyToken              = "token"
	KeyEmail              = "email"
	KeyUserID             = "userId"
	KeySessionID          = "sessionId"
	KeyCartID             = "cartId"
	KeyCart               = "cart"
	KeyCartItems          = "cartItems"
	KeyCartItemQuantity   = "cartItemQuantity"
	KeyProductID          = "productId"
	KeyProduct            = "product"
	KeyProducts           = "products"
	KeyCacheKey           = "cacheKey"
	KeyCacheTTL           = "cacheTTL"
	KeyEventType          = "eventType"
	KeyDbURL              = "dbURL"
	KeyRemovedSessionKeys = "removedSessionKeys"
	KeyOwner              = "owner"
	KeyOwnerKind          = "ownerKind"
	KeyCacheOperation     = "cacheOperation"
	KeyMessages           = "messages"
	KeySharedRead         = "sharedRead"
	KeyNewCart            = "newCart"
	KeyMergedCartID       = "mergedCartId"
	KeySessionExtended    = "sessionExtended"
	KeyInterval           = "interval"
)
