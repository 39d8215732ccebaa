package config

// EnvPrefix scopes every variable read by Load.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "STOREFRONT_APP_ENV"
	EnvPort                   = "STOREFRONT_APP_PORT"
	EnvLogLevel               = "STOREFRONT_LOG_LEVEL"
	EnvPublicBaseURL          = "STOREFRONT_PUBLIC_BASE_URL"
	EnvDBDSN                  = "STOREFRONT_DB_DSN"
	EnvDBHost                 = "STOREFRONT_DB_HOST"
	EnvDBUser                 = "STOREFRONT_DB_USER"
	EnvDBName                 = "STOREFRONT_DB_NAME"
	EnvRedisURL               = "STOREFRONT_REDIS_URL"
	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvOTPTTL                 = "STOREFRONT_OTP_TTL"
	EnvOTPMaxAttempts         = "STOREFRONT_OTP_MAX_ATTEMPTS"
	EnvOTPRequireOnRegister   = "STOREFRONT_OTP_REQUIRE_ON_REGISTER"
	EnvCORSAllowedOrigins     = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvPricingTaxBasisPoints  = "STOREFRONT_PRICING_TAX_BASIS_POINTS"
	EnvPricingShippingCents   = "STOREFRONT_PRICING_SHIPPING_CENTS"
	EnvCODSettlementDays      = "STOREFRONT_ORDERS_COD_SETTLEMENT_DAYS"
	EnvGCSBucket              = "STOREFRONT_GCS_BUCKET_NAME"
	EnvStripeAPIKey           = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret           = "STOREFRONT_STRIPE_SECRET"
	EnvSendgridAPIKey         = "STOREFRONT_SENDGRID_API_KEY"
	EnvTwilioAccountSID       = "STOREFRONT_TWILIO_ACCOUNT_SID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
