// Package client is a thin JSON client of the Rotinas API, used by the terminal player.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/player"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether the cause of err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.StatusCode == code
}

type Client struct {
	baseURL string
	token   string
	rest    *rest.Client
}

var _ player.Poster = (*Client)(nil)

// New returns a client of the API served under baseURL, eg. http://localhost:8000/v1.
// A nil httpClient uses a client with a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: httpClient},
	}
}

func (c *Client) SetToken(token string) { c.token = token }
func (c *Client) Token() string         { return c.token }

type (
	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	routinesResponse struct {
		Student  routine.Student   `json:"student"`
		Routines []routine.Routine `json:"routines"`
	}

	reorderLibraryRequest struct {
		IDs []string `json:"ids"`
	}

	recordRequest struct {
		ActivityID       string `json:"atividadeId"`
		Status           string `json:"status"`
		TimeTakenSeconds *int   `json:"timeTakenSeconds,omitempty"`
	}
)

// Login authenticates the client: the token is used by every following call.
func (c *Client) Login(ctx context.Context, email, pwd string) (user.User, error) {
	var resp loginResponse
	if err := c.do(ctx, rest.Post, "/users/login", nil, loginRequest{Email: email, Password: pwd}, &resp); err != nil {
		return user.User{}, errors.Wrap(err, "logging in")
	}
	c.token = resp.Token
	return resp.User, nil
}

// Routines lists the routines of studentID, which students may leave empty.
// A zero date does not filter.
func (c *Client) Routines(ctx context.Context, studentID string, date core.Date) (routine.Student, []routine.Routine, error) {
	params := make(map[string]string)
	if studentID != "" {
		params["studentId"] = studentID
	}
	if !date.IsZero() {
		params["date"] = date.String()
	}

	var resp routinesResponse
	if err := c.do(ctx, rest.Get, "/routines", params, nil, &resp); err != nil {
		return routine.Student{}, nil, errors.Wrap(err, "listing routines")
	}
	return resp.Student, resp.Routines, nil
}

// Library returns the caller's virtual cards in library order.
func (c *Client) Library(ctx context.Context) ([]activity.Activity, error) {
	var acts []activity.Activity
	if err := c.do(ctx, rest.Get, "/virtual-cards", nil, nil, &acts); err != nil {
		return nil, errors.Wrap(err, "listing library")
	}
	return acts, nil
}

func (c *Client) ReorderLibrary(ctx context.Context, ids []string) error {
	if err := c.do(ctx, rest.Post, "/virtual-cards/reorder", nil, reorderLibraryRequest{IDs: ids}, nil); err != nil {
		return errors.Wrap(err, "reordering library")
	}
	return nil
}

func (c *Client) ReorderRoutine(ctx context.Context, routineID string, ids []string) error {
	body := routine.ReorderActivities{RoutineID: routineID, ActivityIDs: ids}
	if err := c.do(ctx, rest.Post, "/routines/reorder-activities", nil, body, nil); err != nil {
		return errors.Wrap(err, "reordering routine")
	}
	return nil
}

// PostRecord stores the outcome of one played activity.
func (c *Client) PostRecord(ctx context.Context, evt player.Event) error {
	body := recordRequest{
		ActivityID:       evt.ActivityID,
		Status:           string(evt.Status),
		TimeTakenSeconds: evt.TimeTakenSeconds,
	}
	if err := c.do(ctx, rest.Post, "/registros", nil, body, nil); err != nil {
		return errors.Wrap(err, "posting record")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method rest.Method, path string, params map[string]string, body, dst interface{}) error {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: params,
	}
	if c.token != "" {
		req.Headers["Authorization"] = "Bearer " + c.token
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding body")
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if dst == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(resp.Body), dst), "decoding response")
}

// errorMessage flattens an API error body: {"error": msg} or {field: msg, ...}.
func errorMessage(body string) string {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(body), &fields); err != nil || len(fields) == 0 {
		return strings.TrimSpace(body)
	}
	if msg, ok := fields["error"].(string); ok {
		return msg
	}
	msgs := make([]string, 0, len(fields))
	for fld, msg := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %v", fld, msg))
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
