package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthenticator(t *testing.T) {
	t.Run("listed users are authorized", func(t *testing.T) {
		a := NewAuthenticator([]int64{1, 2})
		assert.True(t, a.IsAuthorized(1))
		assert.True(t, a.IsAuthorized(2))
		assert.False(t, a.IsAuthorized(3))
	})

	t.Run("empty list allows everyone", func(t *testing.T) {
		a := NewAuthenticator(nil)
		assert.True(t, a.IsAuthorized(99))
	})
}
