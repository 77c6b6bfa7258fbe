// Package extractor is the HTTP client for the resume extraction service.
// Text and category derivation happen remotely; this client only resolves
// the resume location to bytes and ships them over.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	extractPath = "/extract"
	userAgent   = "super-connector"

	// localScheme marks resume files that live on this host, written by the
	// register flow before extraction.
	localScheme = "local://"
	fileScheme  = "file://"
)

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

type extraction struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

func New(apiURL string, logger *zap.Logger) *Client {
	return &Client{
		APIURL: strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// Extract resolves fileURL to raw bytes and posts them to the extraction
// service, returning the plain text and the derived category label.
func (c *Client) Extract(ctx context.Context, fileURL string) (string, string, error) {
	name, data, err := c.readSource(ctx, fileURL)
	if err != nil {
		return "", "", err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return "", "", errors.New("resume file is empty")
	}

	c.logger.Debug("extracting resume",
		zap.String("file", name),
		zap.Int("bytes", len(data)),
	)

	result, err := c.postFile(ctx, name, data)
	if err != nil {
		return "", "", err
	}

	return result.Text, result.Category, nil
}

func (c *Client) readSource(ctx context.Context, fileURL string) (string, []byte, error) {
	switch {
	case strings.HasPrefix(fileURL, "http://"), strings.HasPrefix(fileURL, "https://"):
		return c.download(ctx, fileURL)
	case strings.HasPrefix(fileURL, localScheme):
		return readLocal(strings.TrimPrefix(fileURL, localScheme))
	case strings.HasPrefix(fileURL, fileScheme):
		return readLocal(strings.TrimPrefix(fileURL, fileScheme))
	default:
		return readLocal(fileURL)
	}
}

func readLocal(p string) (string, []byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return "", nil, fmt.Errorf("reading resume file: %w", err)
	}
	return filepath.Base(p), data, nil
}

// download fetches a remote resume into a scratch file that is removed on
// every return path.
func (c *Client) download(ctx context.Context, rawURL string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download resume: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("download resume: bad status: %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "resume_download_*")
	if err != nil {
		return "", nil, err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return "", nil, fmt.Errorf("download resume: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", nil, err
	}

	data, err := io.ReadAll(tmp)
	if err != nil {
		return "", nil, err
	}

	return remoteFilename(rawURL), data, nil
}

func remoteFilename(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "resume"
	}

	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "resume"
	}

	return name
}

func (c *Client) postFile(ctx context.Context, filename string, data []byte) (*extraction, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	field, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(field, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+extractPath, &b)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract resume: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extract resume: bad status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var result extraction
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	return &result, nil
}
