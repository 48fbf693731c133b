package registry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/JustJay7/court-registry/pkg/logger"
)

var errIdleTimeout = errors.New("no data received within the read timeout")

// Downloader streams archives to disk. The timeout bounds connecting, waiting
// for response headers and each gap between body reads; a large archive that
// keeps arriving is never cut off.
type Downloader struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	chunkSize int
	logger    *logger.Logger
}

// NewDownloader returns a downloader writing in chunkMB-sized chunks.
func NewDownloader(timeout time.Duration, userAgent string, chunkMB int, logger *logger.Logger) *Downloader {
	if chunkMB <= 0 {
		chunkMB = 1
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		transport.TLSHandshakeTimeout = timeout
		transport.ResponseHeaderTimeout = timeout
	}

	return &Downloader{
		client:    &http.Client{Transport: transport},
		timeout:   timeout,
		userAgent: userAgent,
		chunkSize: chunkMB * 1024 * 1024,
		logger:    logger,
	}
}

// Download fetches rawURL into destDir and returns the local path.
func (d *Downloader) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/zip,application/octet-stream;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if d.timeout > 0 {
		idle := time.AfterFunc(d.timeout, func() { cancel(errIdleTimeout) })
		defer idle.Stop()
		body = &idleReader{r: resp.Body, timer: idle, timeout: d.timeout}
	}

	destPath := filepath.Join(destDir, ArchiveName(rawURL, time.Now()))
	file, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	w := bufio.NewWriterSize(file, d.chunkSize)
	written, err := io.Copy(w, body)
	if err != nil && errors.Is(context.Cause(reqCtx), errIdleTimeout) {
		err = errIdleTimeout
	}
	if err == nil {
		err = w.Flush()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to save archive: %w", err)
	}

	d.logger.Info("Archive downloaded", "url", rawURL, "path", destPath, "bytes", written)
	return destPath, nil
}

// idleReader pushes the idle deadline back on every read that returns data.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.timeout)
	}
	return n, err
}
