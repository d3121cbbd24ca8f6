package main

import (
	"fmt"

	"platform-event-publisher/internal/auth"
	"platform-event-publisher/internal/config"
	"platform-event-publisher/internal/emulator"
	"platform-event-publisher/internal/security"
)

// identityFromConfig builds the accepted integration user from the publisher's own settings.
// When SF_JWT_PRIVATE_KEY is set, its public half verifies bearer assertions.
func identityFromConfig(cfg *config.Config) (emulator.Identity, error) {
	creds := auth.Credentials{
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		Username:      cfg.Username,
		Password:      cfg.Password,
		SecurityToken: cfg.SecurityToken,
	}
	id := emulator.Identity{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Username:     creds.Username,
		Secret:       creds.Secret(),
		Audience:     cfg.LoginBaseURL(),
		TenantID:     cfg.TenantID,
	}
	if cfg.JWTPrivateKey != "" {
		key, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return emulator.Identity{}, fmt.Errorf("load jwt private key: %w", err)
		}
		id.JWTPublicKey = key.Public()
	}
	return id, nil
}
