package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(cause, CodeStoreUnavailable, "check failed")

	assert.True(t, HasCode(err, CodeStoreUnavailable))
	assert.False(t, HasCode(err, CodeValidation))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "check failed: dial tcp: refused", err.Error())
}

func TestCodeOfWrappedChain(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(CodeUniquenessUnchecked, "must check uniqueness"))

	require.Equal(t, CodeUniquenessUnchecked, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.False(t, HasCode(nil, CodeValidation))
}
