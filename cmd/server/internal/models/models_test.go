package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hackcomp/grading-api/cmd/server/internal/models"
)

func TestNewNull(t *testing.T) {
	t.Run("NilPointer", func(t *testing.T) {
		n := models.NewNull[string](nil)

		assert.False(t, n.Valid, "nil pointer should produce an invalid null")
	})
	t.Run("Pointer", func(t *testing.T) {
		v := "grading"
		n := models.NewNull(&v)

		assert.True(t, n.Valid, "pointer should produce a valid null")
		assert.Equal(t, "grading", n.V, "value not carried over")
	})
}

func TestNewNullFromData(t *testing.T) {
	n := models.NewNullFromData(7)

	assert.True(t, n.Valid, "data should produce a valid null")
	assert.Equal(t, 7, n.V, "value not carried over")
}
