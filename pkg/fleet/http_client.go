package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// taskRequestWire and taskItemWire are the JSON wire shapes posted to the
// fleet facility; kept separate from TaskItem/TaskRequest so the public
// types stay free of struct tags.
type taskRequestWire struct {
	UserName string        `json:"userName"`
	Serial   bool          `json:"serial"`
	Items    []taskItemWire `json:"items"`
}

type taskItemWire struct {
	Application string            `json:"application"`
	ServerName  string            `json:"serverName"`
	NodeName    string            `json:"nodeName"`
	Command     string            `json:"command"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	UserName    string            `json:"userName"`
}

type taskResponseWire struct {
	ResultCode int `json:"resultCode"`
}

// HTTPClient is a JSON-over-HTTP Client implementation: it POSTs a
// TaskRequest to a configured endpoint and reads back a result code.
type HTTPClient struct {
	URL    string
	Client *http.Client
}

// NewHTTPClient builds an HTTPClient posting to url with a sane default
// timeout; fleet tasks are fire-and-forget from the Manager's perspective,
// but the HTTP round trip itself must not hang forever.
func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) AddTaskReq(req TaskRequest) (int, error) {
	wire := taskRequestWire{
		UserName: req.UserName,
		Serial:   req.Serial,
		Items:    make([]taskItemWire, len(req.Items)),
	}
	for i, item := range req.Items {
		wire.Items[i] = taskItemWire{
			Application: item.Application,
			ServerName:  item.ServerName,
			NodeName:    item.NodeName,
			Command:     string(item.Command),
			Parameters:  item.Parameters,
			UserName:    item.UserName,
		}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return 0, fmt.Errorf("marshal task request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Client.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build task request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("add task request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("add task request: fleet facility returned HTTP %d", resp.StatusCode)
	}

	var wireResp taskResponseWire
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return 0, fmt.Errorf("decode task response: %w", err)
	}
	return wireResp.ResultCode, nil
}
