package helpers

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// ChaosMode defines the type of chaos to inject
type ChaosMode int

const (
	// ChaosNone passes requests through untouched
	ChaosNone ChaosMode = iota

	// ChaosConnectionReset fails the round trip before any response
	ChaosConnectionReset

	// ChaosDNSFailure fails the round trip with a *net.DNSError
	ChaosDNSFailure

	// ChaosPartialRead forwards the request but breaks the body mid-read
	ChaosPartialRead

	// ChaosEmptyBody answers 200 with no body
	ChaosEmptyBody

	// ChaosMalformedBody answers 200 with binary garbage
	ChaosMalformedBody

	// ChaosStatus answers with ChaosConfig.Status and ChaosConfig.Body
	ChaosStatus
)

// ErrConnectionReset is returned by ChaosConnectionReset and ChaosPartialRead.
var ErrConnectionReset = errors.New("connection reset by peer")

// ChaosConfig configures the chaos transport behavior
type ChaosConfig struct {
	// Mode determines which type of chaos to inject
	Mode ChaosMode

	// FailFirst limits chaos to the first N requests; later requests pass
	// through. Zero means every request.
	FailFirst int

	// PartialReadBytes is how much of the body is delivered before the read
	// fails. Defaults to half the body.
	PartialReadBytes int

	// Status and Body are used by ChaosStatus
	Status int
	Body   string
}

// ChaosTransport is an http.RoundTripper that injects failures in front of
// a real transport.
type ChaosTransport struct {
	next     http.RoundTripper
	config   ChaosConfig
	requests atomic.Int64
	injected atomic.Int64
}

// NewChaosTransport wraps next (http.DefaultTransport when nil).
func NewChaosTransport(next http.RoundTripper, config ChaosConfig) *ChaosTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &ChaosTransport{next: next, config: config}
}

// Client returns an http.Client using the transport.
func (c *ChaosTransport) Client() *http.Client {
	return &http.Client{Transport: c}
}

// Requests returns how many round trips were attempted.
func (c *ChaosTransport) Requests() int {
	return int(c.requests.Load())
}

// Injected returns how many round trips were sabotaged.
func (c *ChaosTransport) Injected() int {
	return int(c.injected.Load())
}

// RoundTrip implements http.RoundTripper.
func (c *ChaosTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := c.requests.Add(1)
	if c.config.Mode == ChaosNone || (c.config.FailFirst > 0 && n > int64(c.config.FailFirst)) {
		return c.next.RoundTrip(req)
	}
	c.injected.Add(1)

	switch c.config.Mode {
	case ChaosConnectionReset:
		return nil, ErrConnectionReset

	case ChaosDNSFailure:
		return nil, &net.DNSError{Err: "no such host", Name: req.URL.Hostname(), IsNotFound: true}

	case ChaosPartialRead:
		resp, err := c.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		cut := c.config.PartialReadBytes
		if cut <= 0 || cut > len(body) {
			cut = len(body) / 2
		}
		resp.Body = &partialReadCloser{reader: bytes.NewReader(body[:cut])}
		resp.ContentLength = -1
		return resp, nil

	case ChaosEmptyBody:
		return synthesize(req, http.StatusOK, ""), nil

	case ChaosMalformedBody:
		return synthesize(req, http.StatusOK, "This is not JSON\x00\x01\x02"), nil

	case ChaosStatus:
		return synthesize(req, c.config.Status, c.config.Body), nil
	}

	return c.next.RoundTrip(req)
}

func synthesize(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"application/json"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// partialReadCloser delivers what it holds, then fails instead of EOF.
type partialReadCloser struct {
	reader io.Reader
}

func (p *partialReadCloser) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if errors.Is(err, io.EOF) {
		return n, ErrConnectionReset
	}
	return n, err
}

func (p *partialReadCloser) Close() error {
	return nil
}
