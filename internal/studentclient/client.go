package studentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"student-console/internal/student"
)

const TotalCountHeader = "x-total-count"

// Page is one slice of the collection plus the total size reported by the backend.
type Page struct {
	Students []student.Student
	Total    int
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout}, logger)
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) ListStudents(ctx context.Context, page, limit int) (Page, error) {
	if page < 1 || limit < 1 {
		return Page{}, fmt.Errorf("list students page=%d limit=%d: %w", page, limit, ErrInvalidInput)
	}

	query := url.Values{}
	query.Set("_page", strconv.Itoa(page))
	query.Set("_limit", strconv.Itoa(limit))

	var students []student.Student
	header, err := c.do(ctx, http.MethodGet, "/students?"+query.Encode(), nil, &students)
	if err != nil {
		return Page{}, err
	}

	total, _ := strconv.Atoi(header.Get(TotalCountHeader))
	if total < len(students) {
		total = len(students)
	}
	return Page{Students: students, Total: total}, nil
}

func (c *Client) GetStudent(ctx context.Context, id int) (student.Student, error) {
	if id <= 0 {
		return student.Student{}, fmt.Errorf("get student %d: %w", id, ErrInvalidInput)
	}
	var s student.Student
	_, err := c.do(ctx, http.MethodGet, studentPath(id), nil, &s)
	return s, err
}

func (c *Client) CreateStudent(ctx context.Context, draft student.Draft) (student.Student, error) {
	var s student.Student
	_, err := c.do(ctx, http.MethodPost, "/students", draft, &s)
	return s, err
}

func (c *Client) UpdateStudent(ctx context.Context, id int, s student.Student) (student.Student, error) {
	if id <= 0 {
		return student.Student{}, fmt.Errorf("update student %d: %w", id, ErrInvalidInput)
	}
	s.ID = id
	var updated student.Student
	_, err := c.do(ctx, http.MethodPut, studentPath(id), s, &updated)
	return updated, err
}

func (c *Client) DeleteStudent(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("delete student %d: %w", id, ErrInvalidInput)
	}
	_, err := c.do(ctx, http.MethodDelete, studentPath(id), nil, nil)
	return err
}

func studentPath(id int) string {
	return "/students/" + strconv.Itoa(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "backend call failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "backend call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, decodeError(resp, method, path)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Header, nil
}

// errorBody covers both {"error": "msg"} and {"error": {"field": "msg"}}.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

func decodeError(resp *http.Response, method, path string) error {
	apiErr := &APIError{
		Status: resp.StatusCode,
		Method: method,
		Path:   path,
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Error) == 0 {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	var message string
	if err := json.Unmarshal(body.Error, &message); err == nil {
		apiErr.Message = message
		return apiErr
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		var fields map[string]string
		if err := json.Unmarshal(body.Error, &fields); err == nil {
			apiErr.Fields = fields
			apiErr.Message = "validation failed"
		}
	}
	return apiErr
}
