package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuemby/drover/pkg/health"
	"github.com/cuemby/drover/pkg/types"
)

const (
	defaultTimeout = 10 * time.Second

	// maxBodyBytes bounds response reads; controller payloads are small
	maxBodyBytes = 4 << 20
)

// Config holds controller connection settings
type Config struct {
	// Endpoint is the controller base URL, e.g. "https://controller:19080"
	Endpoint string

	// Token is an optional bearer token sent with every request
	Token string

	// Timeout bounds each individual request. Zero means the default (10s).
	// A timed-out call surfaces as a NetworkError.
	Timeout time.Duration
}

// Client talks to the cluster controller REST API. All methods take a
// context; a request in flight when the context is cancelled is abandoned
// and its error reported as a NetworkError.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	hc      *http.Client
}

// NewClient creates a controller client
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.Endpoint, "/")
	if base == "" {
		return nil, fmt.Errorf("controller endpoint is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid controller endpoint %q: %w", cfg.Endpoint, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		timeout: timeout,
		hc:      &http.Client{Timeout: timeout},
	}, nil
}

// nodeDescriptor is the controller's node wire format
type nodeDescriptor struct {
	Name                string `json:"Name"`
	NodeStatus          string `json:"NodeStatus"`
	UpgradeDomain       string `json:"UpgradeDomain"`
	FaultDomain         string `json:"FaultDomain"`
	NodeUpTimeInSeconds int64  `json:"NodeUpTimeInSeconds"`
	InstanceID          string `json:"InstanceId"`
}

type loadMetricWire struct {
	Name         string  `json:"Name"`
	NodeLoad     float64 `json:"NodeLoad"`
	NodeCapacity float64 `json:"NodeCapacity"`
}

type loadInformationWire struct {
	NodeName        string           `json:"NodeName"`
	NodeLoadMetrics []loadMetricWire `json:"NodeLoadMetricInformation"`
}

type healthEventWire struct {
	SourceID    string    `json:"SourceId"`
	Property    string    `json:"Property"`
	HealthState string    `json:"HealthState"`
	Description string    `json:"Description"`
	SequenceNum int64     `json:"SequenceNumber"`
	IssuedAt    time.Time `json:"SourceUtcTimestamp"`
}

type nodeHealthWire struct {
	Name            string            `json:"Name"`
	AggregatedState string            `json:"AggregatedHealthState"`
	Events          []healthEventWire `json:"HealthEvents"`
}

type deactivateBody struct {
	DeactivationIntent int `json:"DeactivationIntent"`
}

type restartBody struct {
	NodeInstanceID string `json:"NodeInstanceId"`
}

// GetNode fetches the node descriptor
func (c *Client) GetNode(ctx context.Context, name string) (types.Node, error) {
	var wire nodeDescriptor
	if err := c.getJSON(ctx, "GetNode", name, c.nodePath(name, ""), &wire); err != nil {
		return types.Node{}, err
	}
	return types.Node{
		ID:            wire.Name,
		Status:        parseNodeStatus(wire.NodeStatus),
		UpgradeDomain: wire.UpgradeDomain,
		FaultDomain:   wire.FaultDomain,
		UpTimeSeconds: wire.NodeUpTimeInSeconds,
		InstanceID:    wire.InstanceID,
	}, nil
}

// GetLoadInformation fetches the node's load metrics
func (c *Client) GetLoadInformation(ctx context.Context, name string) (types.LoadInformation, error) {
	var wire loadInformationWire
	if err := c.getJSON(ctx, "GetLoadInformation", name, c.nodePath(name, "/LoadInformation"), &wire); err != nil {
		return types.LoadInformation{}, err
	}

	load := types.LoadInformation{NodeID: name}
	for _, m := range wire.NodeLoadMetrics {
		load.Metrics = append(load.Metrics, types.LoadMetric{
			Name:         m.Name,
			NodeLoad:     m.NodeLoad,
			NodeCapacity: m.NodeCapacity,
		})
	}
	return load, nil
}

// GetHealth fetches the node health snapshot with the given event filter
func (c *Client) GetHealth(ctx context.Context, name string, filter health.EventsFilter) (types.Health, error) {
	path := c.nodePath(name, "/Health") + "?eventsFilter=" + filter.Query()

	var wire nodeHealthWire
	if err := c.getJSON(ctx, "GetHealth", name, path, &wire); err != nil {
		return types.Health{}, err
	}

	h := types.Health{
		NodeID:         name,
		AggregateState: parseHealthState(wire.AggregatedState),
	}
	for _, ev := range wire.Events {
		h.Events = append(h.Events, types.HealthEvent{
			SourceID:    ev.SourceID,
			Property:    ev.Property,
			State:       parseHealthState(ev.HealthState),
			Description: ev.Description,
			SequenceNum: ev.SequenceNum,
			IssuedAt:    ev.IssuedAt,
		})
	}
	return h, nil
}

// Activate requests activation of a deactivated or down node
func (c *Client) Activate(ctx context.Context, name string) error {
	return c.post(ctx, "Activate", name, c.nodePath(name, "/$/Activate"), nil)
}

// Deactivate requests deactivation with the given intent. The intent is
// forwarded verbatim; the controller interprets it.
func (c *Client) Deactivate(ctx context.Context, name string, intent types.DeactivationIntent) error {
	return c.post(ctx, "Deactivate", name, c.nodePath(name, "/$/Deactivate"),
		deactivateBody{DeactivationIntent: int(intent)})
}

// RemoveNodeState tells the controller the down node's persisted state is
// gone for good
func (c *Client) RemoveNodeState(ctx context.Context, name string) error {
	return c.post(ctx, "RemoveNodeState", name, c.nodePath(name, "/$/RemoveNodeState"), nil)
}

// Restart restarts the node. instanceID pins the request to the node
// incarnation observed by the caller.
func (c *Client) Restart(ctx context.Context, name, instanceID string) error {
	return c.post(ctx, "Restart", name, c.nodePath(name, "/$/Restart"),
		restartBody{NodeInstanceID: instanceID})
}

func (c *Client) nodePath(name, suffix string) string {
	return c.baseURL + "/Nodes/" + url.PathEscape(name) + suffix
}

func (c *Client) getJSON(ctx context.Context, op, node, rawURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, node, err)
	}
	c.setHeaders(req)

	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Node: node, Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, node, resp); err != nil {
		return err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &NetworkError{Op: op, Node: node, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", op, node, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, node, rawURL string, body any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: %w", op, node, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, node, err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Node: node, Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, node, resp); err != nil {
		return err
	}
	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) checkStatus(op, node string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", op, node, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", op, node, ErrAuth)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &ServerRejectedError{
			Op:         op,
			Node:       node,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}
}

func parseNodeStatus(s string) types.NodeStatus {
	switch strings.ToLower(s) {
	case "up":
		return types.NodeStatusUp
	case "down":
		return types.NodeStatusDown
	case "disabling":
		return types.NodeStatusDisabling
	case "disabled":
		return types.NodeStatusDisabled
	default:
		return types.NodeStatusInvalid
	}
}

func parseHealthState(s string) types.HealthState {
	switch strings.ToLower(s) {
	case "ok":
		return types.HealthStateOk
	case "warning":
		return types.HealthStateWarning
	case "error":
		return types.HealthStateError
	case "unknown":
		return types.HealthStateUnknown
	default:
		return types.HealthStateInvalid
	}
}
