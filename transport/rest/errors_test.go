package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeError(t *testing.T) {
	const fallback = "request failed"
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", fallback},
		{"raw text", "Internal Server Error", "Internal Server Error"},
		{"json string", `"quota exceeded"`, "quota exceeded"},
		{"detail string", `{"detail": "Course not found"}`, "Course not found"},
		{"detail list", `{"detail": [{"loc": ["body", "email"], "msg": "field required"}, {"loc": ["body", "password"], "msg": "too short"}]}`, "email: field required; password: too short"},
		{"detail list with index", `{"detail": [{"loc": ["body", "files", 0], "msg": "bad file"}]}`, "files: bad file"},
		{"detail object", `{"detail": {"loc": ["query", "user_id"], "msg": "missing"}}`, "user_id: missing"},
		{"detail without field", `{"detail": [{"loc": ["body"], "msg": "invalid body"}]}`, "invalid body"},
		{"message", `{"message": "try later"}`, "try later"},
		{"error", `{"error": "bad token"}`, "bad token"},
		{"unknown object", `{"foo": "bar"}`, fallback},
		{"bare list", `["first", "second"]`, "first; second"},
		{"html", "<html><body>502 Bad Gateway</body></html>", fallback},
		{"broken json", `{"detail": `, fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeError([]byte(tt.body), fallback))
		})
	}
}

func TestStatusFallback(t *testing.T) {
	assert.Equal(t, "request failed with status 502 (Bad Gateway)", StatusFallback(502))
	assert.Equal(t, "request failed with status 599", StatusFallback(599))
}
