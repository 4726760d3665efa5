package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/quireworks/quire/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionIdentity returns an Identity shaped like one produced by the
// session middleware for the given user id.
func SessionIdentity(userID primitive.ObjectID, name, email string) *auth.Identity {
	return &auth.Identity{
		UserID: userID.Hex(),
		Name:   name,
		Email:  email,
		Method: auth.MethodSession,
	}
}

// APIKeyIdentity returns an Identity shaped like one produced by the
// API key middleware for a key owned by the given workspace.
func APIKeyIdentity(keyID, workspaceID primitive.ObjectID, name string) *auth.Identity {
	return &auth.Identity{
		Name:           name,
		Method:         auth.MethodAPIKey,
		KeyID:          keyID.Hex(),
		KeyWorkspaceID: workspaceID.Hex(),
	}
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with an identity in
// context, bypassing the credential middleware.
func NewAuthenticatedRequest(method, target string, id *auth.Identity) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return auth.WithTestIdentity(req, id)
}

// NewJSONRequest creates an HTTP request carrying a JSON body.
func NewJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertErrorCode checks the machine-readable code in an error envelope.
func (r *ResponseRecorder) AssertErrorCode(t interface{ Errorf(string, ...any) }, code string) {
	if !strings.Contains(r.Body.String(), `"code":"`+code+`"`) {
		t.Errorf("response body does not carry error code %q: %s", code, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
