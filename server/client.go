package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zeu5/evo-rl-tuning/evoenv"
	"github.com/zeu5/evo-rl-tuning/space"
	"github.com/zeu5/evo-rl-tuning/types"
)

// Client drives a remote environment served by Server
type Client struct {
	baseURL string
	client  *http.Client
	ctx     context.Context
	spaces  SpacesResponse
}

var _ types.Environment = &Client{}

// NewClient connects to the server at baseURL and fetches its spaces
func NewClient(ctx context.Context, baseURL string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
		ctx:     ctx,
	}
	if err := c.do(http.MethodGet, "/spaces", nil, &c.spaces); err != nil {
		return nil, errors.Wrap(err, "fetching spaces")
	}
	return c, nil
}

func (c *Client) ActionSpace() space.Discrete {
	return space.Discrete{N: c.spaces.ActionSpace}
}

func (c *Client) ObservationSpace() space.Discrete {
	return space.Discrete{N: c.spaces.ObservationSpace}
}

func (c *Client) MaxSteps() int {
	return c.spaces.MaxSteps
}

func (c *Client) Reset(seed *uint64, _ types.Info) (int, types.Info, error) {
	resp := ResetResponse{}
	if err := c.do(http.MethodPost, "/reset", ResetRequest{Seed: seed}, &resp); err != nil {
		return 0, nil, err
	}
	return resp.State, resp.Info, nil
}

func (c *Client) Step(action int) (*types.StepResult, error) {
	resp := &types.StepResult{}
	if err := c.do(http.MethodPost, "/step", StepRequest{Action: &action}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// State fetches the episode progress of the remote environment
func (c *Client) State() (*StateResponse, error) {
	resp := &StateResponse{}
	if err := c.do(http.MethodGet, "/state", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(bs)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(c.ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e := ErrorResponse{}
		json.NewDecoder(resp.Body).Decode(&e)
		return errors.Wrap(statusError(resp.StatusCode), e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// statusError maps a response code back to the environment error
func statusError(code int) error {
	switch code {
	case http.StatusBadRequest:
		return evoenv.ErrInvalidAction
	case http.StatusConflict:
		return evoenv.ErrNotReady
	default:
		return errors.Errorf("remote environment failed with status %d", code)
	}
}
