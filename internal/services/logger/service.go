package logger

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// bodySnippet bounds how much of a webhook response is copied into the log.
const bodySnippet = 512

// RoundTripper logs every outbound webhook request. The request path is never
// logged because webhook URLs carry their secret token in it.
type RoundTripper struct {
	Logger *zap.Logger
	Proxy  http.RoundTripper
}

func NewRoundTripper(logger *zap.Logger) *RoundTripper {
	return &RoundTripper{
		Logger: logger,
		Proxy:  http.DefaultTransport,
	}
}

func (l *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.Proxy.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		l.Logger.Error("webhook request failed",
			zap.String("method", req.Method),
			zap.String("host", req.URL.Host),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	snippet, err := io.ReadAll(io.LimitReader(resp.Body, bodySnippet))
	if err != nil {
		_ = resp.Body.Close()
		l.Logger.Error("failed to read webhook response body",
			zap.String("method", req.Method),
			zap.String("host", req.URL.Host),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	// The caller still reads the whole body; only the snippet is buffered.
	resp.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(snippet), resp.Body),
		Closer: resp.Body,
	}

	l.Logger.Info("webhook request completed",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.ByteString("body_snipped", snippet),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

type replayBody struct {
	io.Reader
	io.Closer
}
