package playlist

import (
	"net"
	"net/http"
	"time"
)

// BrowserUserAgent is sent with every playlist fetch so servers that reject
// non-browser clients still serve the document.
const BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const fetchDeadline = 15 * time.Second

// newClient builds the shared HTTP client, modeled on a pkg/http.Client
// transport (bounded dial/idle/TLS timeouts, connection
// reuse) but without its download-specific compression disabling.
func newClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxConnsPerHost:       16,
	}
	return &http.Client{Transport: transport, Timeout: fetchDeadline}
}
