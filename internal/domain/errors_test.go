package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := fmt.Errorf("select image: %w", ErrImageNotFound)
	err := E(NotFound, "imageset.Remove", "image not found", cause)

	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, "image not found", MessageOf(err))
	assert.True(t, errors.Is(err, ErrImageNotFound))
	assert.Equal(t, "imageset.Remove: image not found: select image: image not found", err.Error())

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, NotFound, KindOf(wrapped))

	assert.Equal(t, Unexpected, KindOf(errors.New("boom")))
	assert.Equal(t, "unexpected error", MessageOf(errors.New("boom")))
}

func TestKindMarshalsByName(t *testing.T) {
	b, err := json.Marshal(map[string]Kind{"kind": PersistenceFailure})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"kind":"persistence_failure"}`, string(b))
	assert.Equal(t, "unexpected", Kind(200).String())
}
