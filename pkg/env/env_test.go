package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstSkipsBlankValues(t *testing.T) {
	t.Setenv("STOREFRONT_A", "  ")
	t.Setenv("STOREFRONT_B", "b")
	assert.Equal(t, "b", First("x", "STOREFRONT_A", "STOREFRONT_B"))
	assert.Equal(t, "x", First("x", "STOREFRONT_MISSING"))
}

func TestLogFormat(t *testing.T) {
	t.Setenv("STOREFRONT_LOG_FORMAT", "")
	t.Setenv("LOG_FORMAT", "Pretty")
	assert.Equal(t, "console", LogFormat())

	t.Setenv("STOREFRONT_LOG_FORMAT", "json")
	assert.Equal(t, "json", LogFormat())

	t.Setenv("STOREFRONT_LOG_FORMAT", "xml")
	assert.Equal(t, "json", LogFormat())
}
