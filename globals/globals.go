package globals

import (
	"time"
)

var (
	// JwtSecret and TokenTTL are set from config at startup.
	JwtSecret = []byte("your_secret_key")
	TokenTTL  = 7 * 24 * time.Hour

	// PublicURL is the externally visible base used in tracking links.
	PublicURL = "http://localhost:8080"

	// UploadDir is the on-disk root served under /uploads.
	UploadDir = "./uploads"
)

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"
const TokenIDKey ContextKey = "tokenId"
const TokenExpiryKey ContextKey = "tokenExpiry"
const RequestIDKey ContextKey = "requestId"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
