package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultTaskListLimit mirrors the dashboard's task history page size.
	DefaultTaskListLimit = 20
	maxTaskListLimit     = 100
)

// CreateSearchTask submits a new search. The query must be non-empty; an empty
// platform list defaults to youtube.
func (c *Client) CreateSearchTask(ctx context.Context, req CreateSearchTaskRequest) (CreateSearchTaskResponse, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return CreateSearchTaskResponse{}, Validation("query", "must not be empty")
	}
	if len(req.Platforms) == 0 {
		req.Platforms = []string{DefaultPlatform}
	}
	if req.FollowerMin != nil && *req.FollowerMin < 0 {
		return CreateSearchTaskResponse{}, Validation("follower_min", "must not be negative")
	}
	if req.FollowerMax != nil && *req.FollowerMax < 0 {
		return CreateSearchTaskResponse{}, Validation("follower_max", "must not be negative")
	}

	var out CreateSearchTaskResponse
	err := c.do(ctx, "create search task", http.MethodPost, "/search-tasks", nil, req, &out)
	return out, err
}

// ListSearchTasks returns the caller's task history, newest first.
// A zero Limit means DefaultTaskListLimit.
func (c *Client) ListSearchTasks(ctx context.Context, opts ListOptions) ([]SearchTaskListItem, error) {
	if opts.Limit == 0 {
		opts.Limit = DefaultTaskListLimit
	}
	if err := validatePage(opts, maxTaskListLimit); err != nil {
		return nil, err
	}

	var out []SearchTaskListItem
	err := c.do(ctx, "list search tasks", http.MethodGet, "/search-tasks", pageQuery(opts), nil, &out)
	return out, err
}

// GetSearchTask fetches the current status snapshot of a task.
func (c *Client) GetSearchTask(ctx context.Context, taskID string) (SearchTask, error) {
	if err := ValidateID("task_id", taskID); err != nil {
		return SearchTask{}, err
	}

	var out SearchTask
	err := c.do(ctx, "get search task", http.MethodGet, "/search-tasks/"+url.PathEscape(taskID), nil, nil, &out)
	return out, err
}

// GetSearchResults fetches the deduplicated results of a task. The server only
// has results once the task is done; callers must not ask earlier.
func (c *Client) GetSearchResults(ctx context.Context, taskID string) ([]SearchResult, error) {
	if err := ValidateID("task_id", taskID); err != nil {
		return nil, err
	}

	var out []SearchResult
	err := c.do(ctx, "get search results", http.MethodGet, "/search-tasks/"+url.PathEscape(taskID)+"/results", nil, nil, &out)
	return out, err
}
