package pubsub

import (
	"context"

	"google.golang.org/grpc/credentials"
)

// Metadata keys the Pub/Sub API reads on every call.
const (
	MetadataAccessToken = "accesstoken"
	MetadataInstanceURL = "instanceurl"
	MetadataTenantID    = "tenantid"
)

// tokenCredentials attaches the session to every outgoing RPC.
type tokenCredentials struct {
	accessToken string
	instanceURL string
	tenantID    string
	secure      bool
}

var _ credentials.PerRPCCredentials = tokenCredentials{}

func (c tokenCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{
		MetadataAccessToken: c.accessToken,
		MetadataInstanceURL: c.instanceURL,
		MetadataTenantID:    c.tenantID,
	}, nil
}

// RequireTransportSecurity is false only for a plaintext channel to a local emulator.
func (c tokenCredentials) RequireTransportSecurity() bool {
	return c.secure
}
