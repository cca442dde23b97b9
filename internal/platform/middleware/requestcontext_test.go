package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"signup/pkg/requestcontext"
)

func TestRequestContextPropagatesValues(t *testing.T) {
	var gotID, gotUA string
	var hasTime bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = requestcontext.RequestID(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
		_, hasTime = r.Context().Value(requestcontext.ContextKeyRequestTime).(time.Time)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	rec := httptest.NewRecorder()
	chimw.RequestID(RequestContext(next)).ServeHTTP(rec, req)

	assert.NotEmpty(t, gotID)
	assert.Equal(t, gotID, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "curl/8.0", gotUA)
	assert.True(t, hasTime)
}

func TestDescribeClient(t *testing.T) {
	assert.Equal(t, "", DescribeClient(""))
	assert.Equal(t, "bot", DescribeClient("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"))

	desc := DescribeClient("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, desc, "Chrome 120.0.0.0")
	assert.Contains(t, desc, "Linux")
}
