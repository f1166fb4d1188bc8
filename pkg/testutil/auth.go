package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auditescrow/internal/platform/middleware"
	"auditescrow/pkg/ids"
)

// WithBearer attaches a freshly issued bearer token for addr. This is what an
// authenticated client would send; handlers take caller identity only from it.
func WithBearer(t *testing.T, req *http.Request, validator *middleware.JWTValidator, addr ids.Address) *http.Request {
	t.Helper()
	token, err := validator.Issue(addr, time.Hour)
	require.NoError(t, err, "failed to issue test token")
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
