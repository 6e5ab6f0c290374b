package server

import (
	"strings"
)

// ServerHeader formats the SERVER header value as
// "<os>/<os version> UPnP/1.1 <product>/<product version>".
// Spaces inside a token are replaced since tokens are space separated.
func ServerHeader(product, version string) string {
	osName, osVersion := osVersion()
	return token(osName, osVersion) + " UPnP/1.1 " + token(product, version)
}

func token(name, version string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	version = strings.ReplaceAll(strings.TrimSpace(version), " ", "_")
	if name == "" {
		name = "unknown"
	}
	if version == "" {
		version = "0"
	}
	return name + "/" + version
}
