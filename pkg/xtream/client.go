package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/tvee/internal/version"
)

// DefaultTimeout is applied when no HTTP client is injected.
const DefaultTimeout = 2 * time.Minute

const (
	pathPlayerAPI = "/player_api.php"
	pathXMLTV     = "/xmltv.php"
	pathLive      = "/live"

	actionGetLiveCategories = "get_live_categories"
	actionGetLiveStreams    = "get_live_streams"
	actionGetShortEPG       = "get_short_epg"

	paramUsername   = "username"
	paramPassword   = "password"
	paramAction     = "action"
	paramCategoryID = "category_id"
	paramStreamID   = "stream_id"
	paramLimit      = "limit"

	// ExtensionHLS and ExtensionTS are the live container extensions Xtream panels serve.
	ExtensionHLS = "m3u8"
	ExtensionTS  = "ts"

	maxErrorBodyReadSize = 1024
	headerUserAgent      = "User-Agent"
)

// Client is an Xtream Codes API client limited to the live TV surface.
type Client struct {
	// BaseURL is the server base URL (e.g., "http://primestreams.tv:826").
	BaseURL string

	Username string
	Password string

	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Xtream Codes API client.
func NewClient(baseURL, username, password string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Username:   username,
		Password:   password,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  version.UserAgent(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets a custom HTTP client, such as httpclient.Client.StandardClient().
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.HTTPClient = client
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.UserAgent = ua
	}
}

// credentialQuery returns the username/password query shared by every endpoint.
func (c *Client) credentialQuery() url.Values {
	q := url.Values{}
	q.Set(paramUsername, c.Username)
	q.Set(paramPassword, c.Password)
	return q
}

// apiURL builds the player_api.php URL with the given action and parameters.
func (c *Client) apiURL(action string, params map[string]string) string {
	q := c.credentialQuery()
	if action != "" {
		q.Set(paramAction, action)
	}
	for k, v := range params {
		q.Set(k, v)
	}
	return c.BaseURL + pathPlayerAPI + "?" + q.Encode()
}

func (c *Client) get(ctx context.Context, requestURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if c.UserAgent != "" {
		req.Header.Set(headerUserAgent, c.UserAgent)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyReadSize))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp, nil
}

// doRequest performs a GET request and decodes the JSON response into target.
func (c *Client) doRequest(ctx context.Context, requestURL string, target any) error {
	resp, err := c.get(ctx, requestURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// GetLiveCategories retrieves all live stream categories in provider order.
func (c *Client) GetLiveCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.doRequest(ctx, c.apiURL(actionGetLiveCategories, nil), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetLiveStreams retrieves live streams. An empty categoryID returns every stream.
func (c *Client) GetLiveStreams(ctx context.Context, categoryID string) ([]Stream, error) {
	params := map[string]string{}
	if categoryID != "" {
		params[paramCategoryID] = categoryID
	}

	var streams []Stream
	if err := c.doRequest(ctx, c.apiURL(actionGetLiveStreams, params), &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// GetShortEPG retrieves the next few EPG entries for a stream.
// A limit of 0 uses the server default.
func (c *Client) GetShortEPG(ctx context.Context, streamID int, limit int) ([]EPGListing, error) {
	params := map[string]string{paramStreamID: strconv.Itoa(streamID)}
	if limit > 0 {
		params[paramLimit] = strconv.Itoa(limit)
	}

	var response EPGResponse
	if err := c.doRequest(ctx, c.apiURL(actionGetShortEPG, params), &response); err != nil {
		return nil, err
	}
	return response.EPGListings, nil
}

// XMLTVURL returns the URL for the full XMLTV guide.
func (c *Client) XMLTVURL() string {
	return c.BaseURL + pathXMLTV + "?" + c.credentialQuery().Encode()
}

// GetXMLTVReader opens the full XMLTV guide as a stream. The caller must close it.
func (c *Client) GetXMLTVReader(ctx context.Context) (io.ReadCloser, error) {
	resp, err := c.get(ctx, c.XMLTVURL())
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// LiveStreamURL returns the URL of a live stream in the given container.
// An empty extension defaults to MPEG-TS.
func (c *Client) LiveStreamURL(streamID int, extension string) string {
	return LiveStreamURL(c.BaseURL, c.Username, c.Password, streamID, extension)
}

// LiveStreamURL formats {base}/live/{user}/{pass}/{id}.{ext} without needing a Client.
func LiveStreamURL(baseURL, username, password string, streamID int, extension string) string {
	if extension == "" {
		extension = ExtensionTS
	}
	return fmt.Sprintf("%s%s/%s/%s/%d.%s",
		strings.TrimSuffix(baseURL, "/"), pathLive, url.PathEscape(username), url.PathEscape(password), streamID, extension)
}
