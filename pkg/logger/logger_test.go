package logger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ptamhub/billing/pkg/config"
)

func TestNew_ProdAndDev(t *testing.T) {
	for _, env := range []config.Env{config.EnvDev, config.EnvProd} {
		l, err := New(&config.Config{Env: env})
		require.NoError(t, err)
		require.NotNil(t, l)
	}
}
