package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/globals"
	"storefront/middleware"
	"storefront/models"
	"storefront/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIssueTokenRoundTrip(t *testing.T) {
	userID := primitive.NewObjectID().Hex()
	token, err := IssueToken(userID, globals.RoleAdmin)
	require.NoError(t, err)

	claims, err := middleware.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, globals.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(globals.TokenTTL), claims.ExpiresAt.Time, 5*time.Second)
}

func TestIssueTokenUniqueIDs(t *testing.T) {
	a, err := IssueToken("u1", globals.RoleUser)
	require.NoError(t, err)
	b, err := IssueToken("u1", globals.RoleUser)
	require.NoError(t, err)

	ca, err := middleware.ValidateJWT(a)
	require.NoError(t, err)
	cb, err := middleware.ValidateJWT(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestCheckLoginMode(t *testing.T) {
	tests := []struct {
		name       string
		mode, role string
		wantStatus int
	}{
		{"default mode user", "", globals.RoleUser, 0},
		{"user mode user", "user", globals.RoleUser, 0},
		{"admin mode admin", "admin", globals.RoleAdmin, 0},
		{"admin in user form", "user", globals.RoleAdmin, http.StatusForbidden},
		{"admin in default form", "", globals.RoleAdmin, http.StatusForbidden},
		{"user in admin form", "admin", globals.RoleUser, http.StatusForbidden},
		{"unknown mode", "root", globals.RoleUser, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkLoginMode(tt.mode, tt.role)
			if tt.wantStatus == 0 {
				assert.NoError(t, err)
				return
			}
			status, _ := middleware.TranslateError(err)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestRegisterPasswordMismatch(t *testing.T) {
	body := `{"name":"Ann","email":"ann@example.com","password":"secret1","confirmPassword":"secret2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	middleware.Handle(Register)(rec, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Passwords do not match"}`, rec.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	body := `{"name":"Ann","email":"not-an-email","password":"secret1","confirmPassword":"secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	middleware.Handle(Register)(rec, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email must be a valid email")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ann@example.com", normalizeEmail("  Ann@Example.COM "))
}

func addr(name string, def bool) models.Address {
	return models.Address{ID: primitive.NewObjectID(), FullName: name, IsDefault: def}
}

func defaults(list []models.Address) []string {
	var names []string
	for _, a := range list {
		if a.IsDefault {
			names = append(names, a.FullName)
		}
	}
	return names
}

func TestAppendAddress(t *testing.T) {
	list := appendAddress(nil, addr("home", false))
	assert.Equal(t, []string{"home"}, defaults(list), "first address becomes default")

	list = appendAddress(list, addr("work", false))
	assert.Equal(t, []string{"home"}, defaults(list))

	list = appendAddress(list, addr("cabin", true))
	assert.Equal(t, []string{"cabin"}, defaults(list))
	assert.Len(t, list, 3)
}

func TestReplaceAddress(t *testing.T) {
	list := []models.Address{addr("home", true), addr("work", false)}
	homeID := list[0].ID

	replaceAddress(list, 1, addr("office", true))
	assert.Equal(t, []string{"office"}, defaults(list))
	assert.Equal(t, homeID, list[0].ID)

	replaceAddress(list, 1, addr("office2", false))
	assert.Equal(t, []string{"office2"}, defaults(list), "the default flag cannot be cleared directly")
}

func TestReplaceAddressKeepsID(t *testing.T) {
	list := []models.Address{addr("home", true)}
	id := list[0].ID
	replaceAddress(list, 0, addr("new home", false))
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "new home", list[0].FullName)
}

func TestRemoveAddress(t *testing.T) {
	list := []models.Address{addr("home", true), addr("work", false), addr("cabin", false)}

	_, err := removeAddress(list, list[0].ID)
	var apiErr *utils.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	out, err := removeAddress(list, list[1].ID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "home", out[0].FullName)
	assert.Equal(t, "cabin", out[1].FullName)
	assert.Equal(t, "work", list[1].FullName, "input slice is not modified")

	_, err = removeAddress(list, primitive.NewObjectID())
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
