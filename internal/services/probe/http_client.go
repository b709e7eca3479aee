package probe

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/NordCoder/uptime-probe/internal/obs"
)

type HTTPConfig struct {
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	UserAgent           string        `mapstructure:"user_agent"`
	FollowRedirects     bool          `mapstructure:"follow_redirects"`
	VerifyTLS           bool          `mapstructure:"verify_tls"`
}

// NewHTTPClient has no overall request timeout: a hung endpoint blocks the
// run until the caller's context is cancelled.
func NewHTTPClient(cfg HTTPConfig) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          1,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}

	client := &http.Client{Transport: obs.InstrumentTransport(transport)}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}
