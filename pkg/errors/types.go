// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import "net/http"

const (
	DomainConfig    Domain = "CONFIG"
	DomainServer    Domain = "SERVER"
	DomainDiscovery Domain = "DISCOVERY"
	DomainParse     Domain = "PARSE"
	DomainTopology  Domain = "TOPOLOGY"
	DomainFix       Domain = "FIX"
	DomainValidate  Domain = "VALIDATE"
	DomainApply     Domain = "APPLY"
	DomainMisc      Domain = "MISC"
)

// ErrorCode represents unique error identifiers
type ErrorCode int

// Domain represents the subsystem where the error originated
type Domain string

type NetfixError struct {
	Code       ErrorCode `json:"code"`
	Domain     Domain    `json:"domain"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`

	// Metadata carries contextual information that doesn't fit the
	// standard fields: file paths, device names, fix identifiers.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Error code ranges:
// 1000-1099: Configuration errors
// 1100-1199: Server errors
// 1200-1299: Discovery errors
// 1300-1399: Dialect parse errors
// 1400-1499: Topology errors
// 1500-1599: Fix errors
// 1600-1699: Validation errors
// 1700-1799: Apply / filesystem errors
const (
	// Configuration Errors (1000-1099)
	ConfigNotFound           = 1000 + iota // Config file not found
	ConfigInvalid                          // Invalid config format
	ConfigLoadFailed                       // Failed to load config
	ConfigWriteFailed                      // Failed to write config
	ConfigHomeDirectoryError               // Error getting home directory
	ConfigInvalidFixLevel                  // Unknown fix level name
)

const (
	// Server Errors (1100-1199)
	ServerStart             = 1100 + iota // Failed to start server
	ServerShutdown                        // Error during shutdown
	ServerBind                            // Failed to bind port
	ServerRequestValidation               // Request validation failed
	ServerResponseError                   // Response generation error
	ServerInternalError
)

const (
	// Discovery Errors (1200-1299)
	DiscoveryRootNotFound   = 1200 + iota // Guest filesystem root not found
	DiscoveryReadFailed                   // Failed to read configuration file
	DiscoveryGlobFailed                   // Failed to expand search pattern
	DiscoveryNothingToScan                // No configuration locations present
)

const (
	// Dialect Parse Errors (1300-1399)
	ParseKeyValueFailed  = 1300 + iota // KEY=VALUE content unparseable
	ParseYAMLFailed                    // Declarative YAML unparseable
	ParseYAMLNotMapping                // Declarative YAML is not a mapping
	ParseINIFailed                     // Section-based content unparseable
	ParseXMLFailed                     // Wicked XML unparseable
	ParseInterfacesFailed              // Debian interfaces content unparseable
	ParseUnknownDialect                // No parser for configuration type
)

const (
	// Topology Errors (1400-1499)
	TopologyBuildFailed = 1400 + iota // Failed to build device graph
	TopologyNodeInvalid               // Device node with empty name
)

const (
	// Fix Errors (1500-1599)
	FixBackendMissing = 1500 + iota // No backend for configuration type
	FixFailed                       // Backend fix raised an error
	FixPanic                        // Backend fix panicked
)

const (
	// Validation Errors (1600-1699)
	ValidateEmptyContent  = 1600 + iota // Rewritten content is empty
	ValidateRejected                    // Fix rejected by validation gate
	ValidateYAMLCorrupted               // Rewritten YAML no longer parses
)

const (
	// Apply / Filesystem Errors (1700-1799)
	ApplyBackupFailed  = 1700 + iota // Failed to create backup
	ApplyWriteFailed                 // Failed to write fixed content
	ApplyRestoreFailed               // Failed to restore from backup
	ApplyHashMismatch                // Content changed since discovery
)

var errorDomains = map[ErrorCode]Domain{}
var errorMessages = map[ErrorCode]string{}
var errorHTTPStatus = map[ErrorCode]int{}

func registerErrors(domain Domain, status int, defs map[ErrorCode]string) {
	for code, msg := range defs {
		errorDomains[code] = domain
		errorMessages[code] = msg
		errorHTTPStatus[code] = status
	}
}

func init() {
	registerErrors(DomainConfig, http.StatusInternalServerError, map[ErrorCode]string{
		ConfigNotFound:           "Configuration file not found",
		ConfigInvalid:            "Invalid configuration format",
		ConfigLoadFailed:         "Failed to load configuration",
		ConfigWriteFailed:        "Failed to write configuration",
		ConfigHomeDirectoryError: "Failed to determine home directory",
		ConfigInvalidFixLevel:    "Unknown fix level",
	})

	registerErrors(DomainServer, http.StatusInternalServerError, map[ErrorCode]string{
		ServerStart:         "Failed to start server",
		ServerShutdown:      "Error during server shutdown",
		ServerBind:          "Failed to bind server port",
		ServerResponseError: "Failed to generate response",
		ServerInternalError: "Internal server error",
	})
	errorHTTPStatus[ServerRequestValidation] = http.StatusBadRequest
	errorDomains[ServerRequestValidation] = DomainServer
	errorMessages[ServerRequestValidation] = "Request validation failed"

	registerErrors(DomainDiscovery, http.StatusInternalServerError, map[ErrorCode]string{
		DiscoveryRootNotFound:   "Guest filesystem root not found",
		DiscoveryReadFailed:     "Failed to read configuration file",
		DiscoveryGlobFailed:     "Failed to expand configuration search pattern",
		DiscoveryNothingToScan:  "No network configuration locations found",
	})

	registerErrors(DomainParse, http.StatusUnprocessableEntity, map[ErrorCode]string{
		ParseKeyValueFailed:   "Failed to parse key-value content",
		ParseYAMLFailed:       "Failed to parse declarative network YAML",
		ParseYAMLNotMapping:   "Declarative network YAML is not a mapping",
		ParseINIFailed:        "Failed to parse section-based content",
		ParseXMLFailed:        "Failed to parse Wicked XML content",
		ParseInterfacesFailed: "Failed to parse interfaces content",
		ParseUnknownDialect:   "No parser available for configuration type",
	})

	registerErrors(DomainTopology, http.StatusInternalServerError, map[ErrorCode]string{
		TopologyBuildFailed: "Failed to build device topology graph",
		TopologyNodeInvalid: "Device node has an empty name",
	})

	registerErrors(DomainFix, http.StatusInternalServerError, map[ErrorCode]string{
		FixBackendMissing: "No fix backend for configuration type",
		FixFailed:         "Fix backend failed",
		FixPanic:          "Fix backend panicked",
	})

	registerErrors(DomainValidate, http.StatusUnprocessableEntity, map[ErrorCode]string{
		ValidateEmptyContent:  "Rewritten content is empty",
		ValidateRejected:      "Fix rejected by validation",
		ValidateYAMLCorrupted: "Rewritten YAML no longer parses",
	})

	registerErrors(DomainApply, http.StatusInternalServerError, map[ErrorCode]string{
		ApplyBackupFailed:  "Failed to create backup",
		ApplyWriteFailed:   "Failed to write fixed content",
		ApplyRestoreFailed: "Failed to restore original content from backup",
		ApplyHashMismatch:  "File content changed since discovery",
	})
}
