// Package device derives a display name and a stable fingerprint from the
// User-Agent header. The fingerprint is recorded on attendance rows and
// audit events so HR can spot check-ins from unexpected devices; it is an
// audit aid, not an authentication factor.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// Service computes device fingerprints. When disabled it returns empty
// fingerprints so callers can treat the feature as absent.
type Service struct {
	enabled bool
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ParseUserAgent renders a short human-readable device name, e.g.
// "Chrome on Mac OS X". Unknown agents still produce a usable string.
func ParseUserAgent(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(fmt.Sprintf("%s on %s", browser, os))
}

// ComputeFingerprint hashes the stable parts of the user agent: browser
// name, browser major version, OS name and platform. Minor/patch version
// bumps keep the fingerprint stable; a browser or OS change rotates it.
func (s *Service) ComputeFingerprint(rawUA string) string {
	if !s.enabled {
		return ""
	}

	ua := useragent.New(rawUA)
	browser, version := ua.Browser()
	major := version
	if idx := strings.Index(version, "."); idx > 0 {
		major = version[:idx]
	}

	material := strings.Join([]string{
		browser,
		major,
		ua.OSInfo().Name,
		ua.Platform(),
	}, "|")

	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether two fingerprints match and whether
// the difference counts as drift worth flagging in the audit trail. An
// empty fingerprint on either side means the feature was off for that
// punch, which is neither a match nor drift.
func (s *Service) CompareFingerprints(stored, current string) (matched, drift bool) {
	if stored == "" || current == "" {
		return false, false
	}
	if stored == current {
		return true, false
	}
	return false, true
}
