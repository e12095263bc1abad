package tracing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveAndEmpty(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/:org_id/users"),
		attribute.String("authorization", "Bearer abc"),
		attribute.String("org_id", ""),
		attribute.Int("http.status_code", 200),
	)

	keys := make([]attribute.Key, 0, len(attrs))
	for _, attr := range attrs {
		keys = append(keys, attr.Key)
	}
	assert.ElementsMatch(t, []attribute.Key{"http.route", "http.status_code"}, keys)
}

func TestSafeErrorTruncates(t *testing.T) {
	assert.Nil(t, SafeError(nil))

	err := SafeError(errors.New("first line\nsecond line"))
	assert.EqualError(t, err, "first line")

	long := SafeError(errors.New(strings.Repeat("x", 300)))
	assert.Len(t, long.Error(), 256)
}
