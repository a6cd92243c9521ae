package http

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/catrobat/catroid-share/internal/config"
	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/logging"
)

// CreateTransferClient creates the HTTP client used for project uploads and
// downloads, with proxy support.
//
//   - HTTP/1.1 only unless cfg.EnableHTTP2 is set; the sharing service has
//     historically been talked to over HTTP/1.1 with chunked uploads
//   - No overall timeout; callers bound operations through their context
//   - Transparent compression disabled; gzip is negotiated explicitly by the
//     download path so it can report progress on the compressed stream
//
// If cfg is nil, proxy settings are read from the environment. logger may
// be nil.
func CreateTransferClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	var baseClient *nethttp.Client
	var err error

	if cfg != nil {
		baseClient, err = ConfigureHTTPClient(cfg, logger)
		if err != nil {
			return nil, err
		}
	} else {
		tr := newBaseTransport()
		tr.Proxy = nethttp.ProxyFromEnvironment
		baseClient = &nethttp.Client{Transport: tr}
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM mode wraps the transport in a negotiator; leave it as-is
		baseClient.Timeout = 0
		return baseClient, nil
	}

	tr.DisableCompression = true

	enableHTTP2 := cfg != nil && cfg.EnableHTTP2 && os.Getenv("DISABLE_HTTP2") != "true"
	if enableHTTP2 && proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true" {
		// Proxies often break HTTP/2 multiplexing mid-transfer
		enableHTTP2 = false
	}

	if enableHTTP2 {
		tr.ForceAttemptHTTP2 = true
		_ = http2.ConfigureTransport(tr)
	} else {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0

	return baseClient, nil
}

func newBaseTransport() *nethttp.Transport {
	return &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}
}

func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}
