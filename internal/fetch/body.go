package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// DefaultMaxBodyBytes caps how much of a page is read.
const DefaultMaxBodyBytes int64 = 5 << 20

// readBody decodes the Content-Encoding, transcodes to UTF-8 and reads at
// most maxBytes. Longer bodies are truncated.
func readBody(resp *http.Response, maxBytes int64) (string, error) {
	if resp == nil || resp.Body == nil {
		return "", nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	reader := io.Reader(resp.Body)
	var closers []io.Closer

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			if err == io.EOF {
				return "", nil
			}
			return "", fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(reader, maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	utf8Reader, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return string(raw), nil
	}
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return string(raw), nil
	}
	return string(body), nil
}
