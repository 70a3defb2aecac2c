package validation

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	apperrors "go-roof-inspector/internal/errors"
)

// URLValidator checks provider and classifier endpoints before they are dialled
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateEndpoint validates a concrete or templated endpoint URL.
// Template placeholders such as {z} or {lat} may appear in the path and query.
func (v *URLValidator) ValidateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError(fmt.Sprintf("URL scheme %q not allowed", parsedURL.Scheme), nil)
	}

	if parsedURL.Host == "" || strings.ContainsAny(parsedURL.Host, "{}") {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

// ValidateCoordinates rejects non-finite or out-of-range WGS84 coordinates.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return apperrors.NewValidationError(fmt.Sprintf("latitude %v out of range [-90, 90]", lat), nil)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return apperrors.NewValidationError(fmt.Sprintf("longitude %v out of range [-180, 180]", lon), nil)
	}
	return nil
}

// ValidatePropertyID requires a non-blank identifier.
func ValidatePropertyID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("property_id cannot be empty", nil)
	}
	return nil
}
