// Package gate implements the cross-service existence and guard checks.
//
// Each direction is one synchronous HTTP probe bounded by a timeout. The
// result is tri-state: Present and Absent are definite answers from the
// peer; Unavailable covers timeouts, transport failures and any response
// the protocol does not define. Unavailable is never reported as Absent or
// Present.
package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/eaglebank/platform/shared/config"
	"github.com/eaglebank/platform/shared/middleware"
	"go.uber.org/zap"
)

// Outcome of a probe. The zero value is Unavailable.
type Outcome int

const (
	Unavailable Outcome = iota
	Present
	Absent
)

func (o Outcome) String() string {
	switch o {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unavailable"
	}
}

// ErrUnexpectedResponse marks a peer reply outside the protocol.
var ErrUnexpectedResponse = errors.New("unexpected response from peer")

// Options configures a gate client.
type Options struct {
	// BaseURL of the peer service, without trailing slash.
	BaseURL string
	// Timeout bounds the whole probe, body included. Defaults to 3s.
	Timeout time.Duration
	// Caller names this service in the service token.
	Caller string
	// Secret signs service tokens; empty sends no token.
	Secret   []byte
	TokenTTL time.Duration
	// HTTPClient defaults to a client without its own timeout; the probe
	// context carries the deadline.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type classifier func(resp *http.Response) (Outcome, error)

type prober struct {
	name    string
	opts    Options
	client  *http.Client
	logger  *zap.Logger
	timeout time.Duration
}

func newProber(name string, opts Options) *prober {
	p := &prober{name: name, opts: opts, client: opts.HTTPClient, logger: opts.Logger, timeout: opts.Timeout}
	if p.client == nil {
		p.client = &http.Client{}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.timeout <= 0 {
		p.timeout = config.DefaultGateTimeout
	}
	if p.opts.TokenTTL <= 0 {
		p.opts.TokenTTL = time.Minute
	}
	return p
}

// probe issues one GET and classifies the reply. A local timeout abandons the
// wait; the peer may still finish serving the request.
func (p *prober) probe(ctx context.Context, path string, query url.Values, classify classifier) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	outcome, err := p.do(ctx, path, query, classify)
	fields := []zap.Field{
		zap.String("gate", p.name),
		zap.String("path", path),
		zap.Stringer("outcome", outcome),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		p.logger.Warn("gate probe unavailable", append(fields, zap.Error(err))...)
		return Unavailable, err
	}
	p.logger.Debug("gate probe", fields...)
	return outcome, nil
}

func (p *prober) do(ctx context.Context, path string, query url.Values, classify classifier) (Outcome, error) {
	target := p.opts.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Unavailable, fmt.Errorf("%s: failed to create request: %w", p.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if len(p.opts.Secret) > 0 {
		token, err := middleware.SignServiceToken(p.opts.Secret, p.opts.Caller, p.opts.TokenTTL)
		if err != nil {
			return Unavailable, fmt.Errorf("%s: failed to sign service token: %w", p.name, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Unavailable, fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	outcome, err := classify(resp)
	if err != nil {
		return Unavailable, fmt.Errorf("%s: %w", p.name, err)
	}
	return outcome, nil
}
