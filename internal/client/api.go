package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// RemoteStore is the server side of the two-tier loader.
type RemoteStore interface {
	List(ctx context.Context) ([]core.Expense, error)
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, id string) error
}

// APIError is a non-2xx reply from the expense API.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" && e.Detail != msg {
		return fmt.Sprintf("api %d: %s: %s", e.Status, msg, e.Detail)
	}
	return fmt.Sprintf("api %d: %s", e.Status, msg)
}

// APIClient talks to the expense REST API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ RemoteStore = (*APIClient)(nil)

const listPageSize = core.MaxPageLimit

// NewAPIClient creates a client for the server at baseURL
// (e.g. http://localhost:5000). A nil httpClient uses a 10 second timeout.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	Pagination *struct {
		Page  int `json:"page"`
		Pages int `json:"pages"`
		Total int `json:"total"`
	} `json:"pagination"`
}

// List fetches every expense, following pagination.
func (c *APIClient) List(ctx context.Context) ([]core.Expense, error) {
	var all []core.Expense
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(listPageSize))

		var records []expenseRecord
		env, err := c.do(ctx, http.MethodGet, "/api/expenses?"+q.Encode(), nil, &records)
		if err != nil {
			return nil, core.WrapStore("list", err)
		}
		items, err := fromRecords(records)
		if err != nil {
			return nil, core.WrapStore("list", fmt.Errorf("decode expenses: %w", err))
		}
		all = append(all, items...)

		if env.Pagination == nil || page >= env.Pagination.Pages || len(records) == 0 {
			break
		}
	}
	if all == nil {
		all = []core.Expense{}
	}
	return all, nil
}

type createRequest struct {
	Title       string      `json:"title"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Date        string      `json:"date,omitempty"`
	Description string      `json:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

func (c *APIClient) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	body := createRequest{
		Title:       strings.TrimSpace(in.Title),
		Amount:      json.Number(amount.String()),
		Category:    strings.TrimSpace(in.Category),
		Date:        strings.TrimSpace(in.Date),
		Description: strings.TrimSpace(in.Description),
		Tags:        in.Tags,
	}

	var record expenseRecord
	if _, err := c.do(ctx, http.MethodPost, "/api/expenses", body, &record); err != nil {
		return core.Expense{}, c.mapError("create", "", err)
	}
	e, err := record.toExpense()
	if err != nil {
		return core.Expense{}, core.WrapStore("create", fmt.Errorf("decode expense: %w", err))
	}
	return e, nil
}

func (c *APIClient) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/expenses/"+url.PathEscape(id), nil, nil)
	return c.mapError("delete", id, err)
}

// Stats fetches the server-side aggregate for the date range of filter.
func (c *APIClient) Stats(ctx context.Context, filter core.Filter) (core.Stats, error) {
	q := url.Values{}
	if filter.StartDate != nil {
		q.Set("startDate", filter.StartDate.Format(core.DateLayout))
	}
	if filter.EndDate != nil {
		q.Set("endDate", filter.EndDate.Format(core.DateLayout))
	}
	path := "/api/expenses/stats"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var record statsRecord
	if _, err := c.do(ctx, http.MethodGet, path, nil, &record); err != nil {
		return core.Stats{}, core.WrapStore("stats", err)
	}
	return record.toStats(), nil
}

// mapError turns API replies back into domain errors.
func (c *APIClient) mapError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return &core.NotFoundError{ID: id}
		case http.StatusBadRequest:
			msg := apiErr.Message
			if msg == "" {
				msg = apiErr.Detail
			}
			return core.NewValidationError("", msg)
		}
	}
	return core.WrapStore(op, err)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message, Detail: env.Error}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return &env, nil
}
