// Package utils holds identifier generation and retry with backoff.
package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucsky/cuid"
)

// InstallationIDPrefix starts every generated installation id
const InstallationIDPrefix = "install_"

// NewInstallationID returns "install_<unix millis>_<cuid>". The cuid part
// keeps ids unique when two installs land in the same millisecond.
func NewInstallationID(now time.Time) string {
	return fmt.Sprintf("%s%d_%s", InstallationIDPrefix, now.UnixMilli(), cuid.New())
}

// IsInstallationID reports whether id has the generated shape.
func IsInstallationID(id string) bool {
	if !strings.HasPrefix(id, InstallationIDPrefix) {
		return false
	}
	parts := strings.SplitN(strings.TrimPrefix(id, InstallationIDPrefix), "_", 2)
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

// GenerateRequestID generates a request id for tracing and correlation.
func GenerateRequestID() string {
	return "req-" + uuid.NewString()
}
