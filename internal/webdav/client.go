package webdav

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"lightsync/internal/errs"
	"lightsync/internal/model"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:">
  <D:prop>
    <D:resourcetype/>
    <D:getcontentlength/>
    <D:getlastmodified/>
    <D:getetag/>
  </D:prop>
</D:propfind>`

// HTTPClient talks to one WebDAV server over plain HTTP with basic auth.
// It is cheap to construct: config comes from the database, the password
// from the keyring, and nothing is persisted.
type HTTPClient struct {
	baseURL  string
	basePath string
	auth     string
	http     *http.Client
}

func NewHTTPClient(server model.WebDavServer, password string) (*HTTPClient, error) {
	if err := server.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "invalid server config", err)
	}
	if strings.TrimSpace(password) == "" {
		return nil, errs.New(errs.KindConfig, "password cannot be empty")
	}

	parsed, err := url.Parse(server.URL)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "invalid server URL", err)
	}

	creds := base64.StdEncoding.EncodeToString([]byte(server.Username + ":" + password))

	return &HTTPClient{
		baseURL:  strings.TrimRight(server.URL, "/"),
		basePath: strings.TrimRight(parsed.Path, "/"),
		auth:     "Basic " + creds,
		http:     &http.Client{Timeout: server.Timeout()},
	}, nil
}

func (c *HTTPClient) resourceURL(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return c.baseURL + "/"
	}

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return c.baseURL + "/" + strings.Join(segments, "/")
}

func (c *HTTPClient) do(ctx context.Context, method, p string, headers map[string]string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resourceURL(p), body)
	if err != nil {
		return nil, errs.Wrap(errs.KindProtocol, "build request", err)
	}

	req.Header.Set("Authorization", c.auth)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, netError(method, p, err)
	}

	return resp, nil
}

// netError maps transport failures. Timeouts and connection errors are
// network-kind, which the executor treats as retryable.
func netError(method, p string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return errs.Wrap(errs.KindNetwork, fmt.Sprintf("%s %s timed out", method, p), err)
	}

	return errs.Wrap(errs.KindNetwork, fmt.Sprintf("%s %s failed", method, p), err)
}

// statusError maps an unexpected HTTP status to an error kind.
func statusError(method, p string, status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return errs.Newf(errs.KindAuth, "authentication failed for %s %s", method, p)
	case status == http.StatusForbidden:
		return errs.Newf(errs.KindAuth, "access forbidden for %s %s", method, p)
	case status == http.StatusNotFound:
		return errs.Newf(errs.KindNotFound, "remote path not found: %s", p)
	case status == http.StatusInsufficientStorage:
		return errs.Newf(errs.KindProtocol, "server storage full for %s %s", method, p)
	case status >= 500:
		return errs.Newf(errs.KindNetwork, "server error %d for %s %s", status, method, p)
	default:
		return errs.Newf(errs.KindProtocol, "unexpected status %d for %s %s", status, method, p)
	}
}

type multistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href     string        `xml:"href"`
	Propstat []davPropstat `xml:"propstat"`
}

type davPropstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	ResourceType  davResourceType `xml:"resourcetype"`
	ContentLength int64           `xml:"getcontentlength"`
	LastModified  string          `xml:"getlastmodified"`
	ETag          string          `xml:"getetag"`
}

type davResourceType struct {
	Collection *struct{} `xml:"collection"`
}

func (c *HTTPClient) List(ctx context.Context, p string) ([]Entry, error) {
	resp, err := c.do(ctx, "PROPFIND", p, map[string]string{
		"Depth":        "1",
		"Content-Type": "application/xml; charset=utf-8",
	}, strings.NewReader(propfindBody))
	if err != nil {
		return nil, err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return nil, statusError("PROPFIND", p, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, "read PROPFIND response", err)
	}

	var ms multistatus
	if err := xml.Unmarshal(data, &ms); err != nil {
		return nil, errs.Wrap(errs.KindProtocol, "parse PROPFIND response", err)
	}

	requested := "/" + strings.Trim(path.Join(c.basePath, strings.Trim(p, "/")), "/")
	if requested == "/" {
		requested = ""
	}
	entries := make([]Entry, 0, len(ms.Responses))

	for _, r := range ms.Responses {
		href, err := url.PathUnescape(r.Href)
		if err != nil {
			href = r.Href
		}
		href = strings.TrimRight(href, "/")

		// The collection itself is echoed back; skip it.
		if href == requested || href == "" {
			continue
		}

		rel := strings.TrimPrefix(href, requested)
		rel = strings.TrimPrefix(rel, "/")
		if rel == "" {
			continue
		}

		prop, isDir := pickProp(r.Propstat)

		entry := Entry{
			Path:        path.Join(strings.Trim(p, "/"), rel),
			Name:        path.Base(rel),
			IsDirectory: isDir,
			Size:        prop.ContentLength,
			ETag:        strings.Trim(prop.ETag, `"`),
		}
		if prop.LastModified != "" {
			if t, err := http.ParseTime(prop.LastModified); err == nil {
				entry.Modified = t
			}
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func pickProp(stats []davPropstat) (davProp, bool) {
	for _, ps := range stats {
		if strings.Contains(ps.Status, "200") {
			return ps.Prop, ps.Prop.ResourceType.Collection != nil
		}
	}
	if len(stats) > 0 {
		return stats[0].Prop, stats[0].Prop.ResourceType.Collection != nil
	}

	return davProp{}, false
}

func (c *HTTPClient) Get(ctx context.Context, p string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, p, nil, nil)
	if err != nil {
		return nil, err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("GET", p, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, "read GET response", err)
	}

	return data, nil
}

func (c *HTTPClient) Put(ctx context.Context, p string, data []byte) (string, error) {
	resp, err := c.do(ctx, http.MethodPut, p, map[string]string{
		"Content-Type": "application/octet-stream",
	}, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return strings.Trim(resp.Header.Get("Etag"), `"`), nil
	default:
		return "", statusError("PUT", p, resp.StatusCode)
	}
}

func (c *HTTPClient) Delete(ctx context.Context, p string) error {
	resp, err := c.do(ctx, http.MethodDelete, p, nil, nil)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		// A missing remote file is the desired end state.
		return nil
	default:
		return statusError("DELETE", p, resp.StatusCode)
	}
}

func (c *HTTPClient) Mkcol(ctx context.Context, p string) error {
	resp, err := c.do(ctx, "MKCOL", p, nil, nil)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		return nil
	case http.StatusMethodNotAllowed:
		// Collection already exists.
		return nil
	default:
		return statusError("MKCOL", p, resp.StatusCode)
	}
}

func (c *HTTPClient) TestConnection(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, "PROPFIND", "", map[string]string{
		"Depth":        "0",
		"Content-Type": "application/xml; charset=utf-8",
	}, strings.NewReader(propfindBody))
	if err != nil {
		return "", err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return "", statusError("PROPFIND", "/", resp.StatusCode)
	}

	return detectServerType(resp.Header), nil
}

func detectServerType(h http.Header) string {
	server := strings.ToLower(h.Get("Server"))
	switch {
	case strings.Contains(server, "nextcloud") || h.Get("X-Nextcloud-Well-Known") != "":
		return "nextcloud"
	case strings.Contains(server, "owncloud"):
		return "owncloud"
	default:
		return "generic"
	}
}

// Timeout exposes the configured per-operation timeout, mainly for logs.
func (c *HTTPClient) Timeout() time.Duration {
	return c.http.Timeout
}
