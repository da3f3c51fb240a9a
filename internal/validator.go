package internal

import (
	"fmt"
	"strings"

	pkgerrs "github.com/jamesprial/go-feedly-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

const (
	// Feedly caps /streams/contents at 1000 entries per page.
	maxStreamCount = 1000

	// Upper bound on ids in a single /markers or /tags call.
	maxMarkerIDs = 1000

	maxUserAgentLength = 256
)

// Validator provides validation operations for Feedly API parameters.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateStreamRequest checks the stream id and page size.
func (v *Validator) ValidateStreamRequest(req *types.StreamRequest) error {
	if req == nil {
		return &pkgerrs.ConfigError{Field: "StreamRequest", Message: "stream request cannot be nil"}
	}
	if strings.TrimSpace(req.StreamID) == "" {
		return &pkgerrs.ConfigError{Field: "StreamID", Message: "stream id cannot be empty"}
	}
	return v.ValidateCount(req.Count)
}

// ValidateCount checks a page size. Zero selects the default.
func (v *Validator) ValidateCount(count int) error {
	if count < 0 {
		return &pkgerrs.ConfigError{Field: "Count", Message: "count cannot be negative"}
	}
	if count > maxStreamCount {
		return &pkgerrs.ConfigError{Field: "Count", Message: fmt.Sprintf("count cannot exceed %d", maxStreamCount)}
	}
	return nil
}

// ValidateIDs checks a list of entry, feed or category ids sent in one call.
func (v *Validator) ValidateIDs(field string, ids []string) error {
	if len(ids) == 0 {
		return &pkgerrs.ConfigError{Field: field, Message: "at least one id is required"}
	}
	if len(ids) > maxMarkerIDs {
		return &pkgerrs.ConfigError{Field: field, Message: fmt.Sprintf("cannot send more than %d ids at once (got %d)", maxMarkerIDs, len(ids))}
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return &pkgerrs.ConfigError{Field: fmt.Sprintf("%s[%d]", field, i), Message: "id cannot be empty"}
		}
	}
	return nil
}

// ValidateID checks a single required id.
func (v *Validator) ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &pkgerrs.ConfigError{Field: field, Message: "id cannot be empty"}
	}
	return nil
}

// ValidateUserAgent validates the User-Agent string to prevent header injection attacks.
func (v *Validator) ValidateUserAgent(ua string) error {
	if len(ua) == 0 {
		return fmt.Errorf("user agent cannot be empty")
	}
	if strings.ContainsAny(ua, "\r\n") {
		return fmt.Errorf("user agent cannot contain newline characters")
	}
	if len(ua) > maxUserAgentLength {
		return fmt.Errorf("user agent too long (max %d characters)", maxUserAgentLength)
	}
	return nil
}
