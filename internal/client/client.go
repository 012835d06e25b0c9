// Package client talks to the diary HTTP API. It is the entry repository
// used by the terminal UI and the client commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chris-regnier/diaryweb/internal/entry"
)

// AuthProvider supplies a bearer token for each request. An empty token
// sends the request unauthenticated.
type AuthProvider interface {
	Token(ctx context.Context) (string, error)
}

// Attachment is a file picked for upload. It is opened anew for every
// request, so a form can be resubmitted after a failure.
type Attachment struct {
	Filename string
	open     func() (io.ReadCloser, error)
}

// FileAttachment uploads the file at path under its base name.
func FileAttachment(path string) *Attachment {
	return &Attachment{
		Filename: filepath.Base(path),
		open:     func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesAttachment uploads data under filename.
func BytesAttachment(filename string, data []byte) *Attachment {
	return &Attachment{
		Filename: filename,
		open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// Draft is the input of Create. Nil attachments are not sent.
type Draft struct {
	Topic   string
	Content string
	Image   *Attachment
	Video   *Attachment
	Audio   *Attachment
}

// EditDraft is the input of Update. Nil attachments leave the stored ones
// untouched.
type EditDraft struct {
	Topic   string
	Content string
	Image   *Attachment
	Video   *Attachment
	Audio   *Attachment
}

func attachments(image, video, audio *Attachment) map[entry.MediaKind]*Attachment {
	return map[entry.MediaKind]*Attachment{entry.Image: image, entry.Video: video, entry.Audio: audio}
}

// ListQuery narrows List. The zero value lists everything.
type ListQuery struct {
	Query  string
	Date   string // YYYY-MM-DD
	Limit  int
	Offset int
}

// User is a registered account as returned by the server.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Token is a bearer token issued by the server.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Client is an HTTP client for one diary server.
type Client struct {
	base string
	http *http.Client
	auth AuthProvider
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets a whole-request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithAuth attaches a bearer token from p to every request.
func WithAuth(p AuthProvider) Option {
	return func(c *Client) { c.auth = p }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	c := &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base }

// List returns entries, newest first.
func (c *Client) List(ctx context.Context, q ListQuery) ([]entry.Entry, error) {
	params := url.Values{}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Date != "" {
		params.Set("date", q.Date)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	target := "/api/diary"
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var entries []entry.Entry
	if err := c.do(ctx, http.MethodGet, target, nil, "", &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []entry.Entry{}
	}
	return entries, nil
}

// Get fetches one entry.
func (c *Client) Get(ctx context.Context, id string) (entry.Entry, error) {
	var e entry.Entry
	err := c.do(ctx, http.MethodGet, "/api/diary/"+url.PathEscape(id), nil, "", &e)
	return e, err
}

// Create posts a new entry. Topic is sent only when non-blank.
func (c *Client) Create(ctx context.Context, d Draft) (entry.Entry, error) {
	fields := map[string]string{"content": d.Content}
	if strings.TrimSpace(d.Topic) != "" {
		fields["topic"] = d.Topic
	}
	var e entry.Entry
	err := c.sendForm(ctx, http.MethodPost, "/api/diary", fields, attachments(d.Image, d.Video, d.Audio), &e)
	return e, err
}

// Update replaces an entry's content and topic, and any attachment that is
// set on d.
func (c *Client) Update(ctx context.Context, id string, d EditDraft) (entry.Entry, error) {
	fields := map[string]string{"content": d.Content, "topic": d.Topic}
	var e entry.Entry
	err := c.sendForm(ctx, http.MethodPut, "/api/diary/"+url.PathEscape(id), fields, attachments(d.Image, d.Video, d.Audio), &e)
	return e, err
}

// Delete removes an entry. A missing entry yields an error matching
// ErrNotFound.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/diary/"+url.PathEscape(id), nil, "", nil)
}

// MediaURL returns the URL of a stored attachment, or "" for an empty path.
func (c *Client) MediaURL(path string) string {
	if path == "" {
		return ""
	}
	return c.base + "/api/diary/media/" + url.PathEscape(path)
}

// ThumbnailURL returns the URL of an image attachment's thumbnail.
func (c *Client) ThumbnailURL(path string) string {
	if path == "" {
		return ""
	}
	return c.MediaURL(path) + "/thumbnail"
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, email, password string) (User, error) {
	var u User
	err := c.postJSON(ctx, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &u)
	return u, err
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var t Token
	err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &t)
	return t, err
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(b), "application/json", out)
}

// sendForm streams a multipart body so large attachments are not buffered.
func (c *Client) sendForm(ctx context.Context, method, path string, fields map[string]string, files map[entry.MediaKind]*Attachment, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, fields, files))
	}()

	err := c.do(ctx, method, path, pr, mw.FormDataContentType(), out)
	pr.Close()
	return err
}

func writeForm(mw *multipart.Writer, fields map[string]string, files map[entry.MediaKind]*Attachment) error {
	// Fixed order keeps request bodies reproducible.
	for _, k := range []string{"topic", "content"} {
		if v, ok := fields[k]; ok {
			if err := mw.WriteField(k, v); err != nil {
				return err
			}
		}
	}
	for _, kind := range entry.MediaKinds {
		a := files[kind]
		if a == nil || a.open == nil {
			continue
		}
		if err := writeFile(mw, kind, a); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFile(mw *multipart.Writer, kind entry.MediaKind, a *Attachment) error {
	r, err := a.open()
	if err != nil {
		return fmt.Errorf("opening %s attachment: %w", kind, err)
	}
	defer r.Close()
	fw, err := mw.CreateFormFile(string(kind), filepath.Base(a.Filename))
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("reading %s attachment: %w", kind, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &TransportError{Message: err.Error(), Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		tok, err := c.auth.Token(ctx)
		if err != nil {
			return fmt.Errorf("loading token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Status: resp.StatusCode, Message: "invalid response body: " + err.Error(), Err: err}
	}
	return nil
}

func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(data))

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &TransportError{Status: resp.StatusCode, Message: msg}
}
