package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	restPath  = "/rest/v1"
	usersPath = "/users"
	userAgent = "super-connector"

	contentType = "application/json"
	// PostgREST returns the affected rows only when asked to.
	preferRepresentation = "return=representation"
)

// Supabase implements Store against the hosted table via the PostgREST API.
type Supabase struct {
	key        string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func NewSupabase(baseURL, key string, logger *zap.Logger) *Supabase {
	return &Supabase{
		key:    key,
		APIURL: strings.TrimRight(baseURL, "/") + restPath,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Supabase) CreateUser(ctx context.Context, name, phone string) (*User, error) {
	payload := map[string]any{
		"name":  name,
		"phone": phone,
	}

	rows, err := c.writeRows(ctx, http.MethodPost, c.usersURL(), nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	users, err := decodeUsers(rows)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("create user: no row returned")
	}

	return users[0], nil
}

func (c *Supabase) GetUser(ctx context.Context, id string) (*User, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "*")

	users, err := c.getUsers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}

	return users[0], nil
}

func (c *Supabase) UpdateResume(ctx context.Context, id, resumeURL, text, category string) (*User, error) {
	payload := map[string]any{
		"resume_url":  resumeURL,
		"resume_text": text,
		"category":    category,
		"has_resume":  true,
	}

	q := url.Values{}
	q.Set("id", "eq."+id)

	rows, err := c.writeRows(ctx, http.MethodPatch, c.usersURL(), q, payload)
	if err != nil {
		return nil, fmt.Errorf("update resume: %w", err)
	}

	users, err := decodeUsers(rows)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}

	return users[0], nil
}

func (c *Supabase) ListAll(ctx context.Context) (*Users, error) {
	q := url.Values{}
	q.Set("select", "*")
	// Candidate ordering must be stable across requests, since positional
	// placeholders in match explanations are resolved by index. PostgREST
	// leaves row order unspecified for equal created_at, so id breaks ties.
	q.Set("order", "created_at.asc,id.asc")

	users, err := c.getUsers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &Users{Items: users}, nil
}

func (c *Supabase) ListByCategory(ctx context.Context, category string) (*Users, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("category", "eq."+category)
	q.Set("order", "created_at.asc,id.asc")

	users, err := c.getUsers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users by category: %w", err)
	}

	return &Users{Items: users}, nil
}

func (c *Supabase) usersURL() string {
	return c.APIURL + usersPath
}

func (c *Supabase) getUsers(ctx context.Context, q url.Values) ([]*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.usersURL(), nil)
	if err != nil {
		return nil, err
	}

	c.setHeaders(req)
	req.URL.RawQuery = q.Encode()

	rows, err := c.doRows(req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	return decodeUsers(rows)
}

func (c *Supabase) writeRows(ctx context.Context, method, rawURL string, q url.Values, payload any) ([]map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Prefer", preferRepresentation)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	want := http.StatusOK
	if method == http.MethodPost {
		want = http.StatusCreated
	}

	return c.doRows(req, want)
}

func (c *Supabase) doRows(req *http.Request, wantStatus int) ([]map[string]any, error) {
	c.logger.Debug("supabase request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("bad status: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var rows []map[string]any
	if len(bytes.TrimSpace(data)) == 0 {
		return rows, nil
	}

	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse rows: %w", err)
	}

	return rows, nil
}

func (c *Supabase) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.key))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
}

func decodeUsers(rows []map[string]any) ([]*User, error) {
	var users []*User

	cfg := &mapstructure.DecoderConfig{
		Result:  &users,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(rows); err != nil {
		return nil, fmt.Errorf("decode user rows: %w", err)
	}

	return users, nil
}
