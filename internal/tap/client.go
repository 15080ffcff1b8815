// Package tap implements a minimal client for Table Access Protocol
// services such as the Gaia archive: cookie-backed login sessions,
// synchronous queries, and asynchronous jobs carrying a table upload.
//
// Error classification follows the engine's taxonomy: transport failures
// wrap common.ErrTransientNetwork, rejections and malformed responses wrap
// common.ErrRemoteService, and job removal failures wrap
// common.ErrArtifactCleanup (logged here, never returned).
package tap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gaiasync/internal/common"
	"github.com/dmitrijs2005/gaiasync/internal/logging"
)

const (
	syncPath   = "/tap/sync"
	asyncPath  = "/tap/async"
	loginPath  = "/login"
	logoutPath = "/logout"

	defaultPollInterval = time.Second
)

// Upload describes a single-column table sent along with an asynchronous
// query. On the server it becomes tap_upload.<TableName>, scoped to the job
// that carried it.
type Upload struct {
	TableName string
	Column    string
	IDs       []int64
}

// Client talks to one TAP server. It is safe for concurrent use; jobs that
// carry an upload are serialized because the server's per-session temporary
// tables do not support concurrent lifecycles.
type Client struct {
	endpoint     string
	http         *http.Client
	log          logging.Logger
	removeJobs   bool
	pollInterval time.Duration

	sessionMu sync.Mutex // guards logged
	uploadMu  sync.Mutex // serializes upload-job lifecycles on the shared session
	logged    bool
}

// NewClient builds a client for the TAP server at endpoint (the base URL,
// e.g. "https://gea.esac.esa.int/tap-server"). When removeJobs is set,
// asynchronous jobs are deleted from the server after each authenticated
// fetch.
func NewClient(endpoint string, timeout time.Duration, removeJobs bool, log logging.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		http:         &http.Client{Timeout: timeout, Jar: jar},
		log:          log,
		removeJobs:   removeJobs,
		pollInterval: defaultPollInterval,
	}, nil
}

// Query runs an ADQL query and returns the resulting table. Queries without
// an upload go through the synchronous endpoint; queries with an upload are
// submitted as an asynchronous job whose removal is always attempted once
// the fetch finishes, whether it succeeded or not.
func (c *Client) Query(ctx context.Context, adql string, upload *Upload) (*Table, error) {
	if upload == nil {
		return c.querySync(ctx, adql)
	}
	return c.queryAsync(ctx, adql, upload)
}

func (c *Client) querySync(ctx context.Context, adql string) (*Table, error) {
	form := url.Values{}
	form.Set("REQUEST", "doQuery")
	form.Set("LANG", "ADQL")
	form.Set("FORMAT", "json")
	form.Set("QUERY", adql)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+syncPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: query failed with status %d: %s",
			common.ErrRemoteService, resp.StatusCode, readBodyForError(resp.Body))
	}

	return decodeTable(resp.Body)
}

func (c *Client) queryAsync(ctx context.Context, adql string, upload *Upload) (*Table, error) {
	// The uploaded table lives for exactly one query: create, use, delete.
	// Serializing the whole lifecycle keeps concurrent regions from
	// interleaving temporary-table operations on the shared session.
	c.uploadMu.Lock()
	defer c.uploadMu.Unlock()

	jobID, err := c.submitJob(ctx, adql, upload)
	if err != nil {
		return nil, err
	}
	defer c.deleteJob(ctx, jobID)

	if err := c.waitJob(ctx, jobID); err != nil {
		return nil, err
	}
	return c.jobResults(ctx, jobID)
}

func (c *Client) submitJob(ctx context.Context, adql string, upload *Upload) (string, error) {
	body, contentType, err := buildJobRequestBody(adql, upload)
	if err != nil {
		return "", fmt.Errorf("building job request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+asyncPath, body)
	if err != nil {
		return "", fmt.Errorf("building job request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusSeeOther {
		return "", fmt.Errorf("%w: job submission failed with status %d: %s",
			common.ErrRemoteService, resp.StatusCode, readBodyForError(resp.Body))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("%w: job submission response carries no Location header", common.ErrRemoteService)
	}
	parts := strings.Split(strings.TrimRight(location, "/"), "/")
	jobID := parts[len(parts)-1]
	if jobID == "" {
		return "", fmt.Errorf("%w: cannot derive job id from location %q", common.ErrRemoteService, location)
	}

	c.log.Debug(ctx, "job submitted", "job_id", jobID)
	return jobID, nil
}

func (c *Client) waitJob(ctx context.Context, jobID string) error {
	for {
		phase, err := c.jobPhase(ctx, jobID)
		if err != nil {
			return err
		}

		switch phase {
		case "COMPLETED":
			return nil
		case "ERROR", "ABORTED":
			return fmt.Errorf("%w: job %s finished in phase %s", common.ErrRemoteService, jobID, phase)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) jobPhase(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+asyncPath+"/"+jobID+"/phase", nil)
	if err != nil {
		return "", fmt.Errorf("building phase request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: phase request failed with status %d", common.ErrRemoteService, resp.StatusCode)
	}

	phase, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTransientNetwork, err)
	}
	return strings.TrimSpace(string(phase)), nil
}

func (c *Client) jobResults(ctx context.Context, jobID string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+asyncPath+"/"+jobID+"/results/result", nil)
	if err != nil {
		return nil, fmt.Errorf("building results request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: results request failed with status %d", common.ErrRemoteService, resp.StatusCode)
	}

	return decodeTable(resp.Body)
}

// deleteJob removes a finished job from the server. Failures are logged and
// never escalated: a leaked job must not block synchronization progress.
func (c *Client) deleteJob(ctx context.Context, jobID string) {
	if !c.removeJobs || !c.Authenticated() {
		return
	}

	// Cleanup still runs when the batch is being cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint+asyncPath+"/"+jobID, nil)
	if err != nil {
		c.log.Error(ctx, "error removing job", "job_id", jobID,
			"cause", fmt.Errorf("%w: %w", common.ErrArtifactCleanup, err).Error())
		return
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error(ctx, "error removing job", "job_id", jobID,
			"cause", fmt.Errorf("%w: %w", common.ErrArtifactCleanup, err).Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusSeeOther {
		c.log.Error(ctx, "error removing job", "job_id", jobID,
			"cause", fmt.Errorf("%w: status %d", common.ErrArtifactCleanup, resp.StatusCode).Error())
		return
	}

	c.log.Debug(ctx, "job successfully removed", "job_id", jobID)
}

func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil {
		return "<unreadable body>"
	}
	return strings.TrimSpace(string(body))
}
