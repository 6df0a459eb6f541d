// Package uploader implements the client half of the resource upload
// protocol: a 3-step hand-off (request a pre-signed URL, PUT the bytes
// directly to blob storage, confirm) that moves large files around the API
// server's body-size limit. Files at or under resource.DirectSizeLimit skip
// the protocol and go through the API server in a single call.
//
// Every failure is terminal for the attempt: there are no retries and no
// partial-byte resume. The caller restarts from file selection.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/resource"
)

// State is the lifecycle state of a single upload attempt.
type State string

const (
	StateIdle          State = "idle"
	StateRequestingURL State = "requesting-url"
	StateUploading     State = "uploading"
	StateConfirming    State = "confirming"
	StateComplete      State = "complete"
	StateFailed        State = "failed"
)

const (
	// minGrantWindow is the smallest remaining grant validity worth
	// attempting the PUT and confirm round trips with.
	minGrantWindow = 60 * time.Second

	// defaultPutTimeout bounds the storage PUT. Exceeding it is a failure,
	// not a retry.
	defaultPutTimeout = 600 * time.Second
)

type (
	// FileSpec describes one file to upload along with its resource metadata.
	FileSpec struct {
		Name        string
		Size        int64
		ContentType string
		Content     io.Reader

		Title    string
		ModuleID string
		CohortID string
		Position int
	}

	// Client talks to a running API server and, for large files, directly
	// to blob storage.
	Client struct {
		BaseURL string
		Token   string
		// HTTPClient serves the API calls; StorageClient serves the direct
		// PUT. Both default to http.DefaultClient.
		HTTPClient    *http.Client
		StorageClient *http.Client

		now      func() time.Time // mockable
		putBound time.Duration    // mockable, defaults to defaultPutTimeout
	}

	// Option tweaks a single Upload call.
	Option func(*upload)

	upload struct {
		c    *Client
		spec FileSpec

		state      State
		onState    func(State)
		onProgress func(sent, total int64)
	}

	resourceResponse struct {
		Resource resource.Resource `json:"resource"`
	}
)

func NewClient(baseURL, token string) *Client {
	return &Client{BaseURL: baseURL, Token: token}
}

// OnState observes every state transition of the attempt.
func OnState(fn func(State)) Option {
	return func(u *upload) { u.onState = fn }
}

// OnProgress observes transfer progress. `sent` is monotonically
// non-decreasing within an attempt and equals `total` only once the PUT
// body has been fully written.
func OnProgress(fn func(sent, total int64)) Option {
	return func(u *upload) { u.onProgress = fn }
}

// Upload runs one upload attempt to completion or terminal failure.
func (c *Client) Upload(ctx context.Context, spec FileSpec, opts ...Option) (*resource.Resource, error) {
	u := &upload{c: c, spec: spec, state: StateIdle}
	for _, opt := range opts {
		opt(u)
	}

	// pre-flight: the ceiling is enforced before any network call
	if spec.Size > resource.MaxFileSize {
		return nil, u.fail(ErrFileTooLarge)
	}

	if spec.Size <= resource.DirectSizeLimit {
		return u.runDirect(ctx)
	}
	return u.runPresigned(ctx)
}

// runPresigned is the 3-step protocol:
// requesting-url -> uploading -> confirming -> complete.
func (u *upload) runPresigned(ctx context.Context) (*resource.Resource, error) {
	u.setState(StateRequestingURL)
	grant, err := u.requestGrant(ctx)
	if err != nil {
		return nil, u.fail(err)
	}

	// too little validity left to safely run the next two round trips
	if grant.ExpiresAt.Sub(u.c.clock()()) < minGrantWindow {
		return nil, u.fail(ErrGrantExpired)
	}

	u.setState(StateUploading)
	if err = u.put(ctx, grant); err != nil {
		return nil, u.fail(err)
	}

	u.setState(StateConfirming)
	res, err := u.confirm(ctx, grant)
	if err != nil {
		// the blob may now be an orphan; accepted, not cleaned up here
		return nil, u.fail(err)
	}

	u.setState(StateComplete)
	return res, nil
}

func (u *upload) requestGrant(ctx context.Context) (core.UploadGrant, error) {
	body := resource.NewUploadRequest{
		Filename:    u.spec.Name,
		FileSize:    u.spec.Size,
		ContentType: u.spec.ContentType,
		ModuleID:    u.spec.ModuleID,
		CohortID:    u.spec.CohortID,
	}
	var grant core.UploadGrant
	if err := u.c.postJSON(ctx, "/v1/resources/upload-url", body, &grant); err != nil {
		var serr *StatusError
		if errors.As(err, &serr) {
			if serr.Code == http.StatusRequestEntityTooLarge {
				return core.UploadGrant{}, ErrFileTooLarge
			}
			serr.Stage = StateRequestingURL
		}
		return core.UploadGrant{}, err
	}
	return grant, nil
}

func (u *upload) put(ctx context.Context, grant core.UploadGrant) error {
	ctx, cancel := context.WithTimeout(ctx, u.c.putTimeout())
	defer cancel()

	pr := newProgressReader(u.spec.Content, u.spec.Size, u.onProgress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, grant.UploadURL, pr)
	if err != nil {
		return errors.Wrap(err, "building storage request")
	}
	req.ContentLength = u.spec.Size
	req.Header.Set("Content-Type", u.spec.ContentType)

	resp, err := u.c.storageClient().Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return errors.Wrap(ErrNetwork, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Stage: StateUploading, Code: resp.StatusCode}
	}
	return nil
}

func (u *upload) confirm(ctx context.Context, grant core.UploadGrant) (*resource.Resource, error) {
	body := resource.ConfirmUpload{
		FilePath:    grant.FilePath,
		Title:       u.spec.Title,
		ContentType: u.spec.ContentType,
		ModuleID:    u.spec.ModuleID,
		CohortID:    u.spec.CohortID,
		Position:    u.spec.Position,
	}
	var rr resourceResponse
	if err := u.c.postJSON(ctx, "/v1/resources/confirm-upload", body, &rr); err != nil {
		return nil, errors.Wrap(ErrConfirmFailed, err.Error())
	}
	return &rr.Resource, nil
}

// runDirect is the small-file path: one multipart POST through the API
// server, never requesting a signed URL.
func (u *upload) runDirect(ctx context.Context) (*resource.Resource, error) {
	u.setState(StateUploading)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":        u.spec.Title,
		"content_type": u.spec.ContentType,
		"module_id":    u.spec.ModuleID,
		"cohort_id":    u.spec.CohortID,
		"position":     strconv.Itoa(u.spec.Position),
	}
	for k, v := range fields {
		if v != "" {
			if err := w.WriteField(k, v); err != nil {
				return nil, u.fail(errors.Wrap(err, "writing form field"))
			}
		}
	}
	part, err := w.CreateFormFile("file", u.spec.Name)
	if err != nil {
		return nil, u.fail(errors.Wrap(err, "writing form file"))
	}
	pr := newProgressReader(u.spec.Content, u.spec.Size, u.onProgress)
	if _, err = io.Copy(part, pr); err != nil {
		return nil, u.fail(errors.Wrap(ErrNetwork, err.Error()))
	}
	if err = w.Close(); err != nil {
		return nil, u.fail(errors.Wrap(err, "closing form"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.c.BaseURL+"/v1/resources", &buf)
	if err != nil {
		return nil, u.fail(errors.Wrap(err, "building request"))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	u.c.authorize(req)

	var rr resourceResponse
	if err = u.c.do(req, &rr); err != nil {
		var serr *StatusError
		if errors.As(err, &serr) && serr.Code == http.StatusRequestEntityTooLarge {
			return nil, u.fail(ErrFileTooLarge)
		}
		return nil, u.fail(err)
	}

	u.setState(StateComplete)
	return &rr.Resource, nil
}

func (u *upload) setState(s State) {
	u.state = s
	if u.onState != nil {
		u.onState(s)
	}
}

func (u *upload) fail(err error) error {
	u.setState(StateFailed)
	return err
}

// plumbing

func (c *Client) clock() func() time.Time {
	if c.now != nil {
		return c.now
	}
	return time.Now
}

func (c *Client) putTimeout() time.Duration {
	if c.putBound > 0 {
		return c.putBound
	}
	return defaultPutTimeout
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) storageClient() *http.Client {
	if c.StorageClient != nil {
		return c.StorageClient
	}
	return http.DefaultClient
}

func (c *Client) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return errors.Wrap(ErrNetwork, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Code: resp.StatusCode, Detail: string(detail)}
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

// Result is the outcome of one file in a queued upload.
type Result struct {
	Spec     FileSpec
	Resource *resource.Resource
	Err      error
}

// Summary aggregates a queued upload run. Counts are derived from the
// results themselves, so they cannot drift from what actually happened.
type Summary struct {
	Results   []Result
	Succeeded int
	Failed    int
}

// UploadAll uploads files sequentially; uploads are independent and one
// failure does not stop the rest.
func (c *Client) UploadAll(ctx context.Context, specs []FileSpec, opts ...Option) Summary {
	var sum Summary
	for _, spec := range specs {
		res, err := c.Upload(ctx, spec, opts...)
		sum.Results = append(sum.Results, Result{Spec: spec, Resource: res, Err: err})
		if err != nil {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
	}
	return sum
}
