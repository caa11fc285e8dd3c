package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dreamware/clusterscope/internal/info"
)

// DefaultInfoPort is the info port assumed when a host carries none.
const DefaultInfoPort = 3000

// maxInfoBody caps a single info answer. Longer answers are rejected rather
// than parsed truncated. A variable so tests can lower it.
var maxInfoBody int64 = 8 << 20

// NodeInfo identifies one info gateway. Addr is the gateway base URL.
type NodeInfo struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

// NewNodeInfo builds a NodeInfo for host:port. A host that already carries a
// scheme is used as the base URL unchanged.
func NewNodeInfo(host string, port int) NodeInfo {
	if strings.Contains(host, "://") {
		base := strings.TrimSuffix(host, "/")
		_, rest, _ := strings.Cut(base, "://")
		return NodeInfo{ID: rest, Addr: base}
	}
	if port <= 0 {
		port = DefaultInfoPort
	}
	hostport := net.JoinHostPort(host, strconv.Itoa(port))
	return NodeInfo{ID: hostport, Addr: "http://" + hostport}
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// HTTPNode talks to one node through its info gateway.
type HTTPNode struct {
	node   NodeInfo
	client *http.Client
}

// NewHTTPNode returns a client for node. A nil client uses a shared default;
// per-call deadlines come from the context.
func NewHTTPNode(node NodeInfo, client *http.Client) *HTTPNode {
	if client == nil {
		client = httpClient
	}
	return &HTTPNode{node: node, client: client}
}

func (n *HTTPNode) ID() string { return n.node.ID }

func (n *HTTPNode) Node() NodeInfo { return n.node }

// Info sends one info command and returns the raw text answer.
func (n *HTTPNode) Info(ctx context.Context, cmd string) (string, error) {
	return FetchInfo(ctx, n.client, n.node.Addr, cmd)
}

// FetchInfo issues GET {baseURL}/info?cmd=... and returns the body. Every
// failure wraps one of info.ErrTimeout, info.ErrConnRefused or
// info.ErrProtocol.
func FetchInfo(ctx context.Context, client *http.Client, baseURL, cmd string) (string, error) {
	u := strings.TrimSuffix(baseURL, "/") + "/info?cmd=" + url.QueryEscape(cmd)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", info.ErrProtocol, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxInfoBody+1))
	if err != nil {
		return "", transportError(err)
	}
	if int64(len(body)) > maxInfoBody {
		return "", fmt.Errorf("%w: info %q: answer exceeds %d bytes", info.ErrProtocol, cmd, maxInfoBody)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: info %q: http %d: %s", info.ErrProtocol, cmd, resp.StatusCode,
			strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

func transportError(err error) error {
	switch info.Classify(err) {
	case info.CodeTimeout:
		return fmt.Errorf("%w: %v", info.ErrTimeout, err)
	case info.CodeConnRefused:
		return fmt.Errorf("%w: %v", info.ErrConnRefused, err)
	default:
		return fmt.Errorf("%w: %v", info.ErrProtocol, err)
	}
}

// PutJSON sends body as JSON with PUT and decodes the answer into out when
// out is non-nil.
func PutJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, out)
}

// GetJSON fetches url and decodes the JSON answer into out. A status of 300
// or above is an error.
func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return do(req, out)
}

func do(req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", req.URL, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
