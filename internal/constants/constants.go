// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package constants

// Build-time variables set via ldflags
var (
	Version   = "v0.0.1-dev" // Set via -X flag during build
	CommitSHA = "unknown"    // Set via -X flag during build
	BuildTime = "unknown"    // Set via -X flag during build
)

const (
	NetfixPIDFilePath = "/var/run/netfix/netfix.pid"

	// config
	ConfigFileName = "netfix.yml"

	// routes
	APIVersion = "v1"
	APIBase    = "/api/" + APIVersion
	APINetfix  = APIBase + "/netfix"
)
