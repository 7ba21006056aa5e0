// internal/config/settings.go
package config

import "github.com/spf13/viper"

// SettingType represents the type of a setting
type SettingType string

const (
	// String type for string settings
	String SettingType = "string"
	// Bool type for boolean settings
	Bool SettingType = "bool"
	// Int type for integer settings
	Int SettingType = "int"
	// StringSlice type for string slice settings
	StringSlice SettingType = "stringSlice"
)

// Setting defines a configuration setting
type Setting struct {
	// Name is the name of the setting
	Name string
	// Short is a short description of the setting
	Short string
	// Type is the type of the setting
	Type SettingType
	// Default is the default value of the setting
	Default interface{}
	// Env is the environment variable name for the setting
	Env string
	// Required indicates whether the setting is required
	Required bool
}

// SettingList is a list of settings
type SettingList []Setting

// PopulateViperDefaults sets default values for all settings in Viper
func (sl SettingList) PopulateViperDefaults(v *viper.Viper) {
	for _, s := range sl {
		v.SetDefault(s.Name, s.Default)
	}
}

// Settings defines all application settings
var Settings = SettingList{
	// Server settings
	{
		Name:    "SERVER_ADDR",
		Short:   "Address on which the server listens",
		Type:    String,
		Default: ":8000",
		Env:     "SERVER_ADDR",
	},
	{
		Name:    "METRICS_ADDR",
		Short:   "Address on which the metrics server listens",
		Type:    String,
		Default: ":9090",
		Env:     "METRICS_ADDR",
	},
	{
		Name:    "SHUTDOWN_TIMEOUT",
		Short:   "Maximum time to wait for graceful shutdown",
		Type:    String,
		Default: "30s",
		Env:     "SHUTDOWN_TIMEOUT",
	},

	// TLS settings
	{
		Name:    "TLS_ENABLED",
		Short:   "Enable TLS for the server",
		Type:    Bool,
		Default: false,
		Env:     "TLS_ENABLED",
	},
	{
		Name:    "TLS_CERT_PATH",
		Short:   "Path to TLS certificate file",
		Type:    String,
		Default: "",
		Env:     "TLS_CERT_PATH",
	},
	{
		Name:    "TLS_KEY_PATH",
		Short:   "Path to TLS key file",
		Type:    String,
		Default: "",
		Env:     "TLS_KEY_PATH",
	},

	// Token key material
	{
		Name:    "TOKEN_SECRET",
		Short:   "Shared secret for HMAC signed tokens",
		Type:    String,
		Default: "",
		Env:     "TOKEN_SECRET",
	},
	{
		Name:    "TOKEN_PRIVATE_KEY_PATH",
		Short:   "Path to a PEM private key used to sign tokens",
		Type:    String,
		Default: "",
		Env:     "TOKEN_PRIVATE_KEY_PATH",
	},
	{
		Name:    "TOKEN_PUBLIC_KEY_PATH",
		Short:   "Path to a PEM public key used to verify tokens",
		Type:    String,
		Default: "",
		Env:     "TOKEN_PUBLIC_KEY_PATH",
	},
	{
		Name:    "TOKEN_JWKS_URL",
		Short:   "URL of a JWKS document used to verify tokens",
		Type:    String,
		Default: "",
		Env:     "TOKEN_JWKS_URL",
	},
	{
		Name:    "TOKEN_OIDC_ISSUER",
		Short:   "OpenID issuer whose advertised JWKS verifies tokens",
		Type:    String,
		Default: "",
		Env:     "TOKEN_OIDC_ISSUER",
	},

	// Token options
	{
		Name:    "TOKEN_ALGORITHM",
		Short:   "Signing algorithm, derived from the key material when empty",
		Type:    String,
		Default: "",
		Env:     "TOKEN_ALGORITHM",
	},
	{
		Name:    "TOKEN_AUDIENCE",
		Short:   "Audience set on issued tokens and required on verified ones",
		Type:    String,
		Default: "",
		Env:     "TOKEN_AUDIENCE",
	},
	{
		Name:    "TOKEN_ISSUER",
		Short:   "Issuer set on issued tokens and required on verified ones",
		Type:    String,
		Default: "",
		Env:     "TOKEN_ISSUER",
	},
	{
		Name:    "TOKEN_EXPIRES_IN",
		Short:   "Lifetime of issued tokens, also used as the maximum age on verify",
		Type:    String,
		Default: "",
		Env:     "TOKEN_EXPIRES_IN",
	},
	{
		Name:    "TOKEN_IGNORE_EXPIRATION",
		Short:   "Skip the exp check on verify (defaults to true without TOKEN_EXPIRES_IN)",
		Type:    String,
		Default: "",
		Env:     "TOKEN_IGNORE_EXPIRATION",
	},
	{
		Name:    "TOKEN_LEEWAY",
		Short:   "Clock skew tolerated on time based claims",
		Type:    String,
		Default: "0s",
		Env:     "TOKEN_LEEWAY",
	},

	// Middleware behaviour
	{
		Name:    "ALLOW_ANONYMOUS",
		Short:   "Accept requests without a usable token",
		Type:    Bool,
		Default: false,
		Env:     "ALLOW_ANONYMOUS",
	},
	{
		Name:    "AUTO_SEND_TOKEN",
		Short:   "Answer with the signed token as soon as it is issued",
		Type:    Bool,
		Default: true,
		Env:     "AUTO_SEND_TOKEN",
	},
	{
		Name:    "HANDLE_ERRORS",
		Short:   "Answer token errors instead of passing them to the application",
		Type:    Bool,
		Default: true,
		Env:     "HANDLE_ERRORS",
	},

	// Revocation
	{
		Name:    "REVOCATION_BACKEND",
		Short:   "Revocation store (memory, redis, sqlite)",
		Type:    String,
		Default: "memory",
		Env:     "REVOCATION_BACKEND",
	},
	{
		Name:    "REVOCATION_GC_INTERVAL",
		Short:   "How often expired revocations are purged",
		Type:    String,
		Default: "10m",
		Env:     "REVOCATION_GC_INTERVAL",
	},
	{
		Name:    "REVOCATION_REDIS_ADDR",
		Short:   "Redis address for the redis revocation store",
		Type:    String,
		Default: "localhost:6379",
		Env:     "REVOCATION_REDIS_ADDR",
	},
	{
		Name:    "REVOCATION_REDIS_PASSWORD",
		Short:   "Redis password for the redis revocation store",
		Type:    String,
		Default: "",
		Env:     "REVOCATION_REDIS_PASSWORD",
	},
	{
		Name:    "REVOCATION_REDIS_DB",
		Short:   "Redis database for the redis revocation store",
		Type:    Int,
		Default: 0,
		Env:     "REVOCATION_REDIS_DB",
	},
	{
		Name:    "REVOCATION_SQLITE_PATH",
		Short:   "Database file for the sqlite revocation store",
		Type:    String,
		Default: "tokenware.db",
		Env:     "REVOCATION_SQLITE_PATH",
	},

	// Demo API
	{
		Name:    "DEMO_USERS",
		Short:   "Users accepted by POST /token as name:bcrypt-hash",
		Type:    StringSlice,
		Default: []string{},
		Env:     "DEMO_USERS",
	},

	// Observability
	{
		Name:    "LOG_LEVEL",
		Short:   "Logging level",
		Type:    String,
		Default: "info",
		Env:     "LOG_LEVEL",
	},
	{
		Name:    "LOG_FORMAT",
		Short:   "Logging format (json, text, console)",
		Type:    String,
		Default: "json",
		Env:     "LOG_FORMAT",
	},
}
