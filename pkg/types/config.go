package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"volunteerhub"`
	DatabaseMaxConn int32  `envconfig:"DATABASE_MAX_CONN" default:"10"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`
	PublicBaseURL   string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	// Object storage. StorageBackend is "supabase" or "s3".
	StorageBackend    string `envconfig:"STORAGE_BACKEND" default:"supabase"`
	SupabaseProjectID string `envconfig:"SUPABASE_PROJECT_ID"`
	SupabaseAPIKey    string `envconfig:"SUPABASE_API_KEY"`
	S3PublicBaseURL   string `envconfig:"S3_PUBLIC_BASE_URL"`
	ImageBucket       string `envconfig:"IMAGE_BUCKET" default:"event-images"`
	WaiverBucket      string `envconfig:"WAIVER_BUCKET" default:"waivers"`
	GalleryBucket     string `envconfig:"GALLERY_BUCKET" default:"gallery"`

	// Email. MailProvider is "resend", "ses" or empty to disable.
	MailProvider string `envconfig:"MAIL_PROVIDER"`
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	MailFrom     string `envconfig:"MAIL_FROM"`
	ContactInbox string `envconfig:"CONTACT_INBOX"`
	SESRegion    string `envconfig:"SES_REGION" default:"us-east-1"`

	// Auth Configuration
	SessionMaxAgeSec int `envconfig:"SESSION_MAX_AGE_SEC" default:"604800"` // 7 days

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes
	CSRFKey        string `envconfig:"CSRF_KEY"`         // 32 bytes
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
