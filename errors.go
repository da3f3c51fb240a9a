package feedly

import pkgerrs "github.com/jamesprial/go-feedly-api-wrapper/pkg/errors"

// Error types returned by the client. Use errors.As to inspect them.
type (
	// ConfigError reports invalid configuration or arguments. No request was sent.
	ConfigError = pkgerrs.ConfigError
	// AuthError reports a failed code exchange or token renewal. The user
	// must go through the authorization flow again.
	AuthError = pkgerrs.AuthError
	// RequestError reports a non-200 response, after at most one renewal,
	// or a transport failure.
	RequestError = pkgerrs.RequestError
	// ParseError reports a response body that did not decode.
	ParseError = pkgerrs.ParseError
	// ConsistencyError reports disagreement between two API snapshots.
	ConsistencyError = pkgerrs.ConsistencyError
)
