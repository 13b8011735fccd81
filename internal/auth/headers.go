package auth

import (
	"io"
	"net/http"
	"strings"

	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/store"
)

// BuildHeaders templates the header set the portal's own front end sends.
// Keys are assigned directly so the browser's casing survives.
func BuildHeaders(portal config.PortalConfig, cred store.Credential) http.Header {
	ua := portal.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	origin := strings.TrimSuffix(portal.Origin, "/")
	return http.Header{
		"Accept":             {"application/json, text/plain, */*"},
		"Accept-Language":    {"en-US,en;q=0.9"},
		"Authorization":      {cred.Token},
		"Connection":         {"keep-alive"},
		"Content-Type":       {"application/json;charset=UTF-8"},
		"DNT":                {"1"},
		"Origin":             {origin},
		"Referer":            {origin + "/"},
		"Sec-Fetch-Dest":     {"empty"},
		"Sec-Fetch-Mode":     {"cors"},
		"Sec-Fetch-Site":     {"same-site"},
		"User-Agent":         {ua},
		"sec-ch-ua":          {`"Google Chrome";v="129", "Not=A?Brand";v="8", "Chromium";v="129"`},
		"sec-ch-ua-mobile":   {"?0"},
		"sec-ch-ua-platform": {`"macOS"`},
	}
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
