// Package appid holds the skystats application identity: binary name, env
// prefix and the name used for XDG config/data directories.
package appid

import (
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName  = "skystats"
	Vendor      = "skystats"
	EnvPrefix   = "SKYSTATS_"
	ConfigName  = "skystats"
	Description = "Edge API proxy and CLI for OpenWeatherMap data"
)

// Get returns a fresh copy of the identity so callers cannot mutate shared state.
func Get() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName:  BinaryName,
		Vendor:      Vendor,
		EnvPrefix:   EnvPrefix,
		ConfigName:  ConfigName,
		Description: Description,
	}
}

// ViperEnvPrefix is EnvPrefix without the trailing underscore, as viper expects.
func ViperEnvPrefix() string {
	return strings.TrimSuffix(EnvPrefix, "_")
}

// TelemetryNamespace returns the metric namespace, falling back to the binary name.
func TelemetryNamespace() string {
	if ns := strings.TrimSpace(Get().TelemetryNamespace()); ns != "" {
		return ns
	}
	return BinaryName
}
