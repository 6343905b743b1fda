/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads settings of backendkit components from files, readers and environment variables.
package config

// Config is implemented by every configurable component (logger, server, throttle, stores, database).
type Config interface {
	// SetProviderDefaults registers default values before anything is read.
	SetProviderDefaults(dp DataProvider)
	// Set reads and validates values from the provider.
	Set(dp DataProvider) error
}

// KeyPrefixProvider lets a Config declare the section of the document it owns (e.g. "throttle").
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// ForKeyPrefix returns a provider scoped to the config's key prefix, if it declares one.
func ForKeyPrefix(dp DataProvider, cfg Config) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}
