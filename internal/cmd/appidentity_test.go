package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainsearch/internal/appid"
)

func TestAppIdentityDrivesEnvAndConfigNames(t *testing.T) {
	identity, err := appid.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, identity)

	assert.Equal(t, "namelens", identity.Vendor)
	assert.Equal(t, "domainsearch", identity.BinaryName)
	assert.Equal(t, "domainsearch", identity.ConfigName)
	assert.True(t, strings.HasSuffix(identity.EnvPrefix, "_"), "env prefix %q", identity.EnvPrefix)
	assert.Equal(t, identity.EnvPrefix, appid.EnvPrefix(context.Background()))
}
