package client

import (
	"net/http"
	"time"
)

// HTTPClient is shared by every outbound upstream call. Request lifetimes are
// bounded by the caller's context, so the client itself carries no timeout.
var HTTPClient *http.Client

func init() {
	Init()
}

func Init() {
	HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
		// The trigger endpoint must be called without following redirects.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
