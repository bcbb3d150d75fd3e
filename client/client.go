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
	"strings"
	"time"

	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/model"
	"go.uber.org/zap"
)

const maxErrorBody = 512

type Config struct {
	BaseURL        string
	AssistantId    string
	RequestTimeout time.Duration
}

// SessionClient talks to the remote conversational workflow service.
type SessionClient struct {
	baseURL     string
	assistantId string
	httpClient  *http.Client
}

func NewSessionClient(conf Config) *SessionClient {
	timeout := conf.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SessionClient{
		baseURL:     strings.TrimRight(conf.BaseURL, "/"),
		assistantId: conf.AssistantId,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *SessionClient) CreateThread(ctx context.Context, meta model.ThreadMetadata) (*model.Thread, error) {
	var thread model.Thread
	err := c.do(ctx, "create thread", http.MethodPost, "/threads", model.ThreadCreateRequest{Metadata: meta}, &thread)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (c *SessionClient) GetThread(ctx context.Context, threadId string) (*model.Thread, error) {
	var thread model.Thread
	if err := c.do(ctx, "get thread", http.MethodGet, threadPath(threadId), nil, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (c *SessionClient) SearchThreads(ctx context.Context, meta model.ThreadMetadata, limit int) ([]model.Thread, error) {
	var threads []model.Thread
	req := model.ThreadSearchRequest{Metadata: meta, Limit: limit}
	if err := c.do(ctx, "search threads", http.MethodPost, "/threads/search", req, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// GetThreadState decodes the thread state and rejects values out of range.
func (c *SessionClient) GetThreadState(ctx context.Context, threadId string) (*model.ThreadState, error) {
	var state model.ThreadState
	if err := c.do(ctx, "get thread state", http.MethodGet, threadPath(threadId)+"/state", nil, &state); err != nil {
		return nil, err
	}
	if err := state.Validate(); err != nil {
		return nil, api.InvalidPayloadError{Op: "get thread state", Err: err}
	}
	return &state, nil
}

func (c *SessionClient) UpdateThreadState(ctx context.Context, threadId string, values map[string]any) error {
	return c.do(ctx, "update thread state", http.MethodPatch, threadPath(threadId)+"/state", model.ThreadStateUpdate{Values: values}, nil)
}

func (c *SessionClient) CreateRun(ctx context.Context, threadId string, msgs []model.RemoteMessage) (*model.Run, error) {
	req := model.RunRequest{
		AssistantId: c.assistantId,
		Input:       model.RunInput{Messages: msgs},
		Stream:      false,
	}
	var run model.Run
	err := c.do(ctx, "create run", http.MethodPost, threadPath(threadId)+"/runs", req, &run)
	var unavailable api.RemoteUnavailableError
	if errors.As(err, &unavailable) && unavailable.StatusCode == http.StatusNotFound {
		return nil, api.RemoteUnavailableError{Op: "create run", StatusCode: http.StatusNotFound, Err: fmt.Errorf("thread %s does not exist", threadId)}
	}
	if err != nil {
		return nil, err
	}
	if run.RunId == "" {
		return nil, api.InvalidPayloadError{Op: "create run", Err: errors.New("response has no run_id")}
	}
	return &run, nil
}

func (c *SessionClient) GetRun(ctx context.Context, threadId string, runId string) (*model.Run, error) {
	var run model.Run
	path := threadPath(threadId) + "/runs/" + url.PathEscape(runId)
	if err := c.do(ctx, "get run", http.MethodGet, path, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func threadPath(threadId string) string {
	return "/threads/" + url.PathEscape(threadId)
}

func (c *SessionClient) do(ctx context.Context, op string, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return api.RemoteUnavailableError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Error("error calling workflow service", zap.String("op", op), zap.String("path", path), zap.Error(err))
		return api.RemoteUnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Error("workflow service returned error", zap.String("op", op), zap.String("path", path), zap.Int("status", resp.StatusCode))
		return api.RemoteUnavailableError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(msg)))}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logger.Error("error decoding workflow service response", zap.String("op", op), zap.Error(err))
		return api.InvalidPayloadError{Op: op, Err: err}
	}
	return nil
}
