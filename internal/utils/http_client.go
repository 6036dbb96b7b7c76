package utils

import (
	"bytes"
	"crypto/tls"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mirror-match-backend/pkg/logger"
)

func NewHTTPClient(timeout time.Duration, debug bool) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if debug {
		transport = NewDebugTransport(transport)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// DebugTransport logs outgoing requests with credentials redacted and
// inline image payloads shortened.
type DebugTransport struct {
	base http.RoundTripper
}

func NewDebugTransport(base http.RoundTripper) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		t.logRequest(req)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		logger.Errorf("[upstream debug] %s %s failed after %s: %v", req.Method, req.URL.Redacted(), time.Since(start), err)
		return nil, err
	}
	logger.Debugf("[upstream debug] %s %s -> %d in %s", req.Method, req.URL.Redacted(), resp.StatusCode, time.Since(start))
	return resp, nil
}

func (t *DebugTransport) logRequest(req *http.Request) {
	headers := make([]string, 0, len(req.Header))
	for name, values := range req.Header {
		if IsSensitiveHeader(name) {
			headers = append(headers, name+": [REDACTED]")
			continue
		}
		headers = append(headers, name+": "+strings.Join(values, ", "))
	}

	body := ""
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			logger.Errorf("[upstream debug] failed to read request body: %v", err)
			return
		}
		// 恢复请求体，以免影响实际请求
		req.Body = io.NopCloser(bytes.NewReader(raw))
		body = SanitizeBody(string(raw))
	}

	logger.WithFields(logger.Fields{
		"method":  req.Method,
		"url":     req.URL.Redacted(),
		"headers": strings.Join(headers, "; "),
		"body":    body,
	}).Debug("[upstream debug] request")
}

var sensitiveHeaders = []string{"authorization", "x-api-key", "x-auth-token", "cookie"}

func IsSensitiveHeader(name string) bool {
	for _, sensitive := range sensitiveHeaders {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}

// 长 base64 串（图片内容）只保留长度
var base64Run = regexp.MustCompile(`[A-Za-z0-9+/=]{256,}`)

// SanitizeBody shortens embedded base64 runs so request logs stay readable.
func SanitizeBody(body string) string {
	return base64Run.ReplaceAllStringFunc(body, func(run string) string {
		return "[base64 " + strconv.Itoa(len(run)) + " chars]"
	})
}
