// Package appid resolves the domainsearch application identity: binary name,
// env prefix and config name. An identity compiled into the binary is used
// when no .fulmen/app.yaml or FULMEN_APP_IDENTITY_PATH override is found.
package appid

import (
	"context"
	_ "embed"

	"github.com/fulmenhq/gofulmen/appidentity"
)

// Fallbacks used when identity resolution fails outright.
const (
	DefaultBinaryName = "domainsearch"
	DefaultEnvPrefix  = "DOMAINSEARCH_"
)

//go:embed app.yaml
var embeddedIdentity []byte

func init() {
	_ = appidentity.RegisterEmbeddedIdentityYAML(embeddedIdentity)
}

// Get returns the resolved identity.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// EnvPrefix returns the identity's env prefix, or DefaultEnvPrefix.
func EnvPrefix(ctx context.Context) string {
	if identity, err := appidentity.Get(ctx); err == nil && identity != nil && identity.EnvPrefix != "" {
		return identity.EnvPrefix
	}
	return DefaultEnvPrefix
}

// BinaryName returns the identity's binary name, or DefaultBinaryName.
func BinaryName(ctx context.Context) string {
	if identity, err := appidentity.Get(ctx); err == nil && identity != nil && identity.BinaryName != "" {
		return identity.BinaryName
	}
	return DefaultBinaryName
}
