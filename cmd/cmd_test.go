package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/config"
	"storefront/ratelim"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "create-admin", "ensure-indexes"} {
		assert.True(t, names[want], want)
	}
}

func TestCreateAdminRequiresEmail(t *testing.T) {
	flag := createAdminCmd.Flags().Lookup("email")
	require.NotNil(t, flag)
	assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	setupLogging("warn", "json")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	setupLogging("nonsense", "json")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	verbose = true
	defer func() { verbose = false }()
	setupLogging("error", "json")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestBuildHandlerChain(t *testing.T) {
	cfg := &config.Config{CORSOrigins: "https://shop.example.com"}
	h := buildHandler(cfg, ratelim.NewRateLimiter(60, 10))

	req := httptest.NewRequest(http.MethodGet, "/api/nothing", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
