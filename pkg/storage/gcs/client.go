package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/landmarklens/landmark-api/pkg/config"
	"github.com/landmarklens/landmark-api/pkg/logger"
)

const (
	scope          = "https://www.googleapis.com/auth/devstorage.read_write"
	pingTimeout    = 5 * time.Second
	defaultAPIBase = "https://storage.googleapis.com"
	maxSignedTTL   = 7 * 24 * time.Hour
	errorBodyLimit = 2048
)

// ErrSigningUnavailable is returned when no service account key is loaded.
var ErrSigningUnavailable = errors.New("gcs: signed urls require service account credentials")

type Client struct {
	httpClient     *http.Client
	defaultBucket  string
	tokens         oauth2.TokenSource
	serviceAccount *serviceAccountInfo
	apiBaseURL     string
}

type serviceAccountInfo struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL points JSON API, upload and signed URLs at another host.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			c.apiBaseURL = trimmed
		}
	}
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		defaultBucket: cfg.BucketName,
		apiBaseURL:    defaultAPIBase,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	credsJSON := []byte(gcp.CredentialsJSON)
	if len(credsJSON) == 0 && gcp.ApplicationCredentials != "" {
		raw, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		credsJSON = raw
	}

	// token fetches outlive ctx and go through the configured http client
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, client.httpClient)
	if len(credsJSON) > 0 {
		jwtCfg, err := google.JWTConfigFromJSON(credsJSON, scope)
		if err != nil {
			return nil, fmt.Errorf("parsing service account credentials: %w", err)
		}
		info, err := newServiceAccountInfo(jwtCfg.Email, jwtCfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		client.serviceAccount = info
		client.tokens = jwtCfg.TokenSource(tokenCtx)
	} else {
		client.tokens = google.ComputeTokenSource("", scope)
		if logg != nil {
			logg.Warn(ctx, "gcs using metadata credentials; signed urls disabled")
		}
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}

	return client, nil
}

func (c *Client) BucketHandle(name string) *Bucket {
	if c == nil {
		return nil
	}
	if name == "" {
		name = c.defaultBucket
	}
	return &Bucket{name: name, client: c}
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error {
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errors.New("gcs client not initialized")
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	// object-level check, requires storage.objects.list
	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.baseURL(), url.PathEscape(c.defaultBucket))
	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError("gcs object check", resp)
	}
	return nil
}

// UploadObject stores body under object using a simple media upload.
func (c *Client) UploadObject(ctx context.Context, bucket, object, contentType string, body io.Reader) error {
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return err
	}
	if object == "" {
		return errors.New("object name is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", object)
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.baseURL(), url.PathEscape(bucket), q.Encode())

	resp, err := c.do(ctx, http.MethodPost, u, body, contentType)
	if err != nil {
		return fmt.Errorf("gcs upload %s: %w", object, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("gcs upload "+object, resp)
	}
	return nil
}

// DeleteObject removes object. A missing object counts as deleted.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return err
	}
	if object == "" {
		return errors.New("object name is required")
	}

	resp, err := c.do(ctx, http.MethodDelete, c.objectURL(bucket, object), nil, "")
	if err != nil {
		return fmt.Errorf("gcs delete %s: %w", object, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return statusError("gcs delete "+object, resp)
	}
}

// ObjectExists reports whether object is present in bucket.
func (c *Client) ObjectExists(ctx context.Context, bucket, object string) (bool, error) {
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return false, err
	}
	if object == "" {
		return false, errors.New("object name is required")
	}

	resp, err := c.do(ctx, http.MethodGet, c.objectURL(bucket, object), nil, "")
	if err != nil {
		return false, fmt.Errorf("gcs stat %s: %w", object, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, statusError("gcs stat "+object, resp)
	}
}

// SignedReadURL returns a V2 signed GET URL for object valid for expires.
func (c *Client) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	if c == nil || c.serviceAccount == nil || c.serviceAccount.privateKey == nil {
		return "", ErrSigningUnavailable
	}
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return "", err
	}
	if object == "" {
		return "", errors.New("object name is required")
	}
	if expires <= 0 || expires > maxSignedTTL {
		return "", fmt.Errorf("signed url ttl must be within (0, %s]", maxSignedTTL)
	}

	expiry := time.Now().Add(expires).Unix()
	resource := "/" + bucket + "/" + escapeObject(object)
	stringToSign := fmt.Sprintf("GET\n\n\n%d\n%s", expiry, resource)

	hash := sha256.Sum256([]byte(stringToSign))
	sig, err := rsa.SignPKCS1v15(rand.Reader, c.serviceAccount.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}

	q := url.Values{}
	q.Set("GoogleAccessId", c.serviceAccount.clientEmail)
	q.Set("Expires", strconv.FormatInt(expiry, 10))
	q.Set("Signature", base64.StdEncoding.EncodeToString(sig))

	return c.baseURL() + resource + "?" + q.Encode(), nil
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader, contentType string) (*http.Response, error) {
	if c == nil || c.tokens == nil {
		return nil, errors.New("gcs client not initialized")
	}
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("gcs token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func (c *Client) resolveBucket(bucket string) (string, error) {
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", errors.New("bucket name is required")
	}
	return bucket, nil
}

func (c *Client) baseURL() string {
	if c.apiBaseURL == "" {
		return defaultAPIBase
	}
	return c.apiBaseURL
}

func (c *Client) objectURL(bucket, object string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.baseURL(), url.PathEscape(bucket), url.PathEscape(object))
}

func escapeObject(object string) string {
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("%s failed: %s: %s", op, resp.Status, msg)
	}
	return fmt.Errorf("%s failed: %s", op, resp.Status)
}

func newServiceAccountInfo(email string, pemKey []byte) (*serviceAccountInfo, error) {
	if email == "" {
		return nil, errors.New("service account credentials have no client_email")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}
	return &serviceAccountInfo{clientEmail: email, privateKey: key}, nil
}
