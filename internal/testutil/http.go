package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal returns a caller scoped to groupID holding perms.
func Principal(groupID primitive.ObjectID, perms ...models.Permission) *auth.Principal {
	gid := groupID
	return &auth.Principal{
		UserID:      primitive.NewObjectID(),
		GroupID:     &gid,
		Permissions: perms,
	}
}

// Unscoped returns a caller whose token names no group.
func Unscoped(userID primitive.ObjectID) *auth.Principal {
	return &auth.Principal{UserID: userID, Permissions: []models.Permission{}}
}

// NewRequest creates a request with an optional JSON body.
func NewRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewAuthenticatedRequest is NewRequest with p injected as the caller.
func NewAuthenticatedRequest(t *testing.T, method, target string, body any, p *auth.Principal) *http.Request {
	t.Helper()
	return auth.WithTestPrincipal(NewRequest(t, method, target, body), p)
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
func (r *ResponseRecorder) AssertStatus(t testing.TB, expected int) {
	t.Helper()
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// DecodeJSON decodes the response body into dst.
func (r *ResponseRecorder) DecodeJSON(t testing.TB, dst any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", r.Body.String(), err)
	}
}

// AssertCode checks the "code" field of a JSON error body.
func (r *ResponseRecorder) AssertCode(t testing.TB, expected string) {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	r.DecodeJSON(t, &body)
	if body.Code != expected {
		t.Errorf("error code: got %q, want %q", body.Code, expected)
	}
}
