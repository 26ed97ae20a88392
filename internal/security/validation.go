package security

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	scanerrors "pentellia/scan-core/internal/errors"
	"pentellia/scan-core/internal/model"
)

var (
	uuidRegex = regexp.MustCompile(
		`^[a-fA-F0-9-]{36}$`,
	)
	ownerRegex = regexp.MustCompile(`^[A-Za-z0-9._:@-]{1,128}$`)
	toolRegex  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	hostRegex  = regexp.MustCompile(`^[A-Za-z0-9.-]{1,253}$`)
)

// MaxTimeout bounds the per-scan timeout (seconds) a caller may request.
const MaxTimeout = 3600

// webTools need an absolute http(s) URL as their target.
var webTools = map[string]bool{
	"nuclei":    true,
	"vulnscan":  true,
	"zap":       true,
	"owasp-zap": true,
	"webscan":   true,
	"wafw00f":   true,
	"waf":       true,
	"dirb":      true,
	"dirbuster": true,
	"gobuster":  true,
	"httpx":     true,
	"whatweb":   true,
}

// hostTools take a bare hostname or IP address.
var hostTools = map[string]bool{
	"nmap":        true,
	"portscan":    true,
	"networkscan": true,
}

func ValidateJobID(id string) error {
	if !uuidRegex.MatchString(id) {
		return invalid("invalid job_id")
	}
	return nil
}

func ValidateOwner(owner string) error {
	if !ownerRegex.MatchString(owner) {
		return invalid("invalid owner_id")
	}
	return nil
}

// ValidateScanRequest checks a dispatch request before it reaches the executor.
func ValidateScanRequest(req model.ScanRequest) error {
	tool := strings.ToLower(strings.TrimSpace(req.Tool))
	if !toolRegex.MatchString(tool) {
		return invalid("invalid tool")
	}
	if req.Timeout < 0 || req.Timeout > MaxTimeout {
		return invalid("invalid timeout")
	}

	target := strings.TrimSpace(req.ResolvedTarget())
	if target == "" {
		return invalid("empty target")
	}

	switch {
	case webTools[tool]:
		u, err := url.ParseRequestURI(target)
		if err != nil {
			return fmt.Errorf("invalid target: %v: %w", err, scanerrors.ErrInvalidInput)
		}
		if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
			return invalid("target must be an http(s) URL")
		}
	case hostTools[tool]:
		if net.ParseIP(target) == nil && !hostRegex.MatchString(target) {
			if _, _, err := net.ParseCIDR(target); err != nil {
				return invalid("target must be a host, IP or CIDR")
			}
		}
	default:
		if strings.ContainsAny(target, "\n\r\x00") {
			return invalid("target contains control characters")
		}
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%s: %w", msg, scanerrors.ErrInvalidInput)
}
