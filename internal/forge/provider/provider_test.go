package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/forge-sparks/internal/forge"
)

func TestNewDispatchesEveryKind(t *testing.T) {
	for _, kind := range forge.Kinds {
		f, err := New(kind, forge.Config{AccountID: "a"}, Options{})
		require.NoError(t, err)
		require.Equal(t, kind, f.Kind())
	}

	_, err := New(forge.Kind("bitbucket"), forge.Config{}, Options{})
	require.Error(t, err)
}
