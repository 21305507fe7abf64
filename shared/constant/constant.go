package constant

const (
	RoleCustomer = "CUSTOMER"
	RoleProvider = "PROVIDER"
	RoleAdmin    = "ADMIN"
)

const (
	RequestHeaderAuthorization = "Authorization"
	RequestHeaderContentType   = "Content-Type"
	RequestHeaderRequestID     = "X-Request-ID"

	ContentTypeJSON = "application/json"

	BearerPrefix = "Bearer "
)

// Storage keys for the persisted credential pair, mirroring the
// browser client's localStorage names.
const (
	StorageKeyAccessToken  = "access_token"
	StorageKeyRefreshToken = "refresh_token"
)

const (
	PaymentMethodCash  = "CASH"
	PaymentMethodMpesa = "M-PESA"
)

const (
	OtelServiceScopeName    = "service"
	OtelRepositoryScopeName = "repository"
	OtelRestScopeName       = "rest"
	OtelRealtimeScopeName   = "realtime"
)

const Empty = ""
