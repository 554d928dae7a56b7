// Package jira submits worklog entries to a Jira Cloud instance. Remote
// outcomes never surface as Go errors: every call is classified into a
// success or failure result value so a partial-failure bulk submission can
// still report per-group detail.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"worklog/models"
)

const (
	errNotConfigured       = "JIRA not configured"
	errNotConfiguredSingle = "JIRA not configured. Please set up JIRA credentials."
	errTimedOut            = "Request timed out"

	// maxErrBody bounds the response-body prefix included in bulk failure
	// diagnostics.
	maxErrBody = 200
)

// Credentials are one user's stored tracker settings, unsealed and ready to
// use. Complete reports whether an outbound call can be attempted at all.
type Credentials struct {
	BaseURL  string
	Email    string
	APIToken string
}

func (c Credentials) Complete() bool {
	return c.BaseURL != "" && c.Email != "" && c.APIToken != ""
}

func (c Credentials) authHeader() string {
	raw := c.Email + ":" + c.APIToken
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// CredentialSource resolves a user's stored tracker credentials. A user with
// no stored config yields zero Credentials, not an error.
type CredentialSource interface {
	Credentials(ctx context.Context, userID uuid.UUID) (Credentials, error)
}

// Client is the submission client plus bulk orchestrator.
type Client struct {
	creds CredentialSource
	http  *http.Client
	log   *zap.Logger
}

// NewClient builds a submission client. timeout bounds each outbound call.
func NewClient(creds CredentialSource, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		creds: creds,
		http:  &http.Client{Timeout: timeout},
		log:   log,
	}
}

// LogEntry submits a single entry as its own worklog. Already-submitted
// detection is the caller's job; this always attempts the outbound call once
// credentials resolve.
func (c *Client) LogEntry(ctx context.Context, userID uuid.UUID, entry *models.WorklogEntry) models.LogToJiraResponse {
	creds, err := c.creds.Credentials(ctx, userID)
	if err != nil {
		c.log.Error("resolving tracker credentials", zap.Error(err))
		return models.LogToJiraResponse{Success: false, EntryID: entry.ID, Error: err.Error()}
	}
	if !creds.Complete() {
		return models.LogToJiraResponse{Success: false, EntryID: entry.ID, Error: errNotConfiguredSingle}
	}

	group := Group{
		IssueKey:    entry.IssueKey,
		EntryIDs:    []uint{entry.ID},
		Minutes:     entry.DurationMinutes(),
		Description: entry.Description,
	}
	outcome := c.submitGroup(ctx, creds, group)
	if outcome.ok {
		return models.LogToJiraResponse{Success: true, EntryID: entry.ID, JiraWorklogID: outcome.worklogID}
	}
	return models.LogToJiraResponse{Success: false, EntryID: entry.ID, Error: outcome.message}
}

// BulkLogEntries aggregates entries by issue key and submits each group
// sequentially, in aggregation order. Credentials are resolved once for the
// whole batch; if absent, every group is recorded as failed without any
// outbound call.
func (c *Client) BulkLogEntries(ctx context.Context, userID uuid.UUID, entries []models.WorklogEntry) models.BulkLogToJiraResponse {
	if len(entries) == 0 {
		return models.BulkLogToJiraResponse{Success: true, Results: []models.BulkLogResult{}}
	}

	groups := Aggregate(entries)
	results := make([]models.BulkLogResult, 0, len(groups))
	successCount, failureCount := 0, 0

	creds, err := c.creds.Credentials(ctx, userID)
	if err != nil {
		c.log.Error("resolving tracker credentials", zap.Error(err))
	}
	if err != nil || !creds.Complete() {
		for _, g := range groups {
			results = append(results, models.BulkLogResult{
				IssueKey: g.IssueKey,
				Success:  false,
				EntryIDs: g.EntryIDs,
				Duration: "0m",
				Error:    errNotConfigured,
			})
			failureCount++
		}
		return models.BulkLogToJiraResponse{
			Success:      false,
			TotalIssues:  len(groups),
			SuccessCount: 0,
			FailureCount: failureCount,
			Results:      results,
		}
	}

	for _, g := range groups {
		result := models.BulkLogResult{
			IssueKey: g.IssueKey,
			EntryIDs: g.EntryIDs,
			Duration: g.Duration(),
		}
		outcome := c.submitGroup(ctx, creds, g)
		if outcome.ok {
			result.Success = true
			result.JiraWorklogID = outcome.worklogID
			successCount++
		} else {
			result.Error = outcome.message
			if outcome.bodyPrefix != "" {
				result.Error += " - " + outcome.bodyPrefix
			}
			failureCount++
		}
		results = append(results, result)
	}

	return models.BulkLogToJiraResponse{
		Success:      failureCount == 0,
		TotalIssues:  len(groups),
		SuccessCount: successCount,
		FailureCount: failureCount,
		Results:      results,
	}
}

// outcome is the classified result of one outbound worklog creation.
type outcome struct {
	ok         bool
	worklogID  string
	message    string
	bodyPrefix string
}

// worklogBody is the Jira Cloud worklog-creation payload. No "started"
// timestamp is sent; Jira assigns the current server time.
type worklogBody struct {
	TimeSpent string  `json:"timeSpent"`
	Comment   *adfDoc `json:"comment,omitempty"`
}

// adfDoc is a minimal Atlassian Document Format wrapper: one paragraph of
// plain text.
type adfDoc struct {
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Content []adfNode `json:"content"`
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

func commentDoc(text string) *adfDoc {
	return &adfDoc{
		Type:    "doc",
		Version: 1,
		Content: []adfNode{{
			Type:    "paragraph",
			Content: []adfNode{{Type: "text", Text: text}},
		}},
	}
}

// createdResponse is the subset of Jira's worklog-created body we keep.
type createdResponse struct {
	ID string `json:"id"`
}

func (c *Client) submitGroup(ctx context.Context, creds Credentials, g Group) outcome {
	body := worklogBody{TimeSpent: g.Duration()}
	if g.Description != "" {
		body.Comment = commentDoc(g.Description)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return outcome{message: err.Error()}
	}

	url := fmt.Sprintf("%s/rest/api/3/issue/%s/worklog", strings.TrimSuffix(creds.BaseURL, "/"), g.IssueKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return outcome{message: err.Error()}
	}
	req.Header.Set("Authorization", creds.authHeader())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return outcome{message: errTimedOut}
		}
		return outcome{message: err.Error()}
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusCreated {
		if readErr != nil {
			return outcome{message: readErr.Error()}
		}
		var created createdResponse
		if err := json.Unmarshal(raw, &created); err != nil {
			return outcome{message: fmt.Sprintf("decoding JIRA response: %v", err)}
		}
		return outcome{ok: true, worklogID: created.ID}
	}

	c.log.Error("JIRA API error",
		zap.String("issue_key", g.IssueKey),
		zap.Int("status", resp.StatusCode))
	prefix := string(raw)
	if len(prefix) > maxErrBody {
		prefix = prefix[:maxErrBody]
	}
	return outcome{
		message:    fmt.Sprintf("JIRA API error: %d", resp.StatusCode),
		bodyPrefix: prefix,
	}
}

// isTimeout classifies client timeouts and context deadline hits.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
