package htmerr_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amansingh-afk/htmcore/htmerr"
)

func TestError_Format(t *testing.T) {
	e := htmerr.New(htmerr.CodeInvalidColumns, htmerr.CategoryConfig, "Invalid number of columns: 0")
	assert.Equal(t, "invalid_columns: Invalid number of columns: 0", e.Error())

	w := htmerr.Wrap(fs.ErrNotExist, htmerr.CodeConfigIO, htmerr.CategoryIO, "failed to read config")
	assert.Equal(t, "config_io: failed to read config: file does not exist", w.Error())
}

func TestError_IsByCode(t *testing.T) {
	e := htmerr.Newf(htmerr.CodeInputMismatch, htmerr.CategoryValidation, "got %d", 3)
	wrapped := fmt.Errorf("compute: %w", e)

	assert.True(t, errors.Is(wrapped, htmerr.ErrInputMismatch))
	assert.False(t, errors.Is(wrapped, htmerr.ErrInvalidConfig))
}

func TestError_UnwrapCause(t *testing.T) {
	w := htmerr.Wrap(fs.ErrPermission, htmerr.CodeConfigIO, htmerr.CategoryIO, "failed to write config")
	assert.True(t, errors.Is(w, fs.ErrPermission))
}

func TestAs_AndCategory(t *testing.T) {
	e := htmerr.New(htmerr.CodeOutOfRange, htmerr.CategoryCapacity, "index 7 out of range")
	got, ok := htmerr.As(fmt.Errorf("outer: %w", e))
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.True(t, htmerr.IsCategory(e, htmerr.CategoryCapacity))
	assert.False(t, htmerr.IsCategory(errors.New("plain"), htmerr.CategoryCapacity))

	_, ok = htmerr.As(nil)
	assert.False(t, ok)
}

func TestError_ContextString(t *testing.T) {
	e := htmerr.New(htmerr.CodeInputMismatch, htmerr.CategoryValidation, "bad input").
		WithContext("want", 100).
		WithContext("got", 99)
	assert.Equal(t, "got=99, want=100", e.ContextString())
	assert.Empty(t, htmerr.New("x", htmerr.CategoryConfig, "y").ContextString())
}
