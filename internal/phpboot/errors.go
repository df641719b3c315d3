package phpboot

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Probe when there is no usable installation.
var ErrNotFound = errors.New("php installation not found")

// TransportError is a network, DNS, connection or HTTP status failure.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnsupportedPlatformError means there is no prebuilt artifact for the platform.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("no prebuilt PHP download available for %q", e.Platform)
}

// ExtractionError is a corrupt or unreadable archive, or an I/O error while unpacking.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// VersionParseError means the executable's output had no "PHP MAJOR.MINOR" prefix.
type VersionParseError struct {
	Output string
}

func (e *VersionParseError) Error() string {
	return fmt.Sprintf("could not parse php version from %q", e.Output)
}

// MetadataParseError means the release metadata was malformed or had no version.
type MetadataParseError struct {
	URL string
	Err error
}

func (e *MetadataParseError) Error() string {
	return fmt.Sprintf("invalid release metadata from %s: %v", e.URL, e.Err)
}

func (e *MetadataParseError) Unwrap() error {
	return e.Err
}

// VersionPolicyError means a version doesn't satisfy the configured min_version.
type VersionPolicyError struct {
	Version    string
	MinVersion string
}

func (e *VersionPolicyError) Error() string {
	return fmt.Sprintf("PHP %s does not satisfy min_version %s", e.Version, e.MinVersion)
}
