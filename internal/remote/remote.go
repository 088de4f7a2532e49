// Package remote lists event and task records from the Google APIs. It
// only fetches; conversion and commit belong to the reconciler. Pagination
// is followed page by page, anything smarter (retry, backoff, sync tokens)
// is out of scope here.
package remote

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	appLog "gcalsync/internal/log"
)

const pageSize = 250

// Client wraps the calendar and tasks services behind one handle.
type Client struct {
	cal   *calendar.Service
	tasks *tasks.Service
}

// NewClient builds a client over a static OAuth access token.
func NewClient(ctx context.Context, token string) (*Client, error) {
	if token == "" {
		return nil, errors.New("remote: empty access token")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	calSvc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}
	taskSvc, err := tasks.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}
	return &Client{cal: calSvc, tasks: taskSvc}, nil
}

// ListEvents returns every event record of the calendar, deleted ones
// included so cancellations reach the reconciler. A non-zero updatedMin
// narrows the listing to records changed since then.
func (c *Client) ListEvents(ctx context.Context, calendarID string, updatedMin time.Time) ([]*calendar.Event, error) {
	var out []*calendar.Event

	call := c.cal.Events.List(calendarID).
		ShowDeleted(true).
		MaxResults(pageSize)
	if !updatedMin.IsZero() {
		call = call.UpdatedMin(updatedMin.Format(time.RFC3339))
	}

	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Items...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	appLog.Info("remote: events listed", "calendar", calendarID, "count", len(out))
	return out, nil
}

// ListTasks returns every task record of the task list, completed and
// deleted ones included.
func (c *Client) ListTasks(ctx context.Context, taskListID string) ([]*tasks.Task, error) {
	var out []*tasks.Task

	call := c.tasks.Tasks.List(taskListID).
		ShowCompleted(true).
		ShowDeleted(true).
		ShowHidden(true).
		MaxResults(pageSize)

	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Items...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	appLog.Info("remote: tasks listed", "tasklist", taskListID, "count", len(out))
	return out, nil
}
