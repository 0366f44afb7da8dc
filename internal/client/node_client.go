package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

// Error classes for failed node calls. The provisioning service maps these
// onto the user-facing failure taxonomy.
var (
	// ErrTransport covers any case where no usable response arrived:
	// connection refused, DNS failure, timeouts.
	ErrTransport = errors.New("node transport error")
	// ErrBackend covers non-success payloads and payloads that cannot be
	// mapped to an account result.
	ErrBackend = errors.New("node backend error")
)

// NodeClient calls the node agent running on each registered server to
// create VPN accounts.
type NodeClient struct {
	scheme     string
	httpClient *http.Client

	sshWSPort  string
	sshTLSPort string
}

// NewNodeClient creates a node agent client. The timeout bounds every call;
// an expired deadline is reported as a transport error.
func NewNodeClient(scheme string, timeout time.Duration, sshWSPort, sshTLSPort string) *NodeClient {
	if scheme == "" {
		scheme = "https"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NodeClient{
		scheme: scheme,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		sshWSPort:  sshWSPort,
		sshTLSPort: sshTLSPort,
	}
}

// nodeResponse is the envelope node agents answer with. Field names vary
// between agent builds, so both the status string and the success flag are
// accepted.
type nodeResponse struct {
	Status  string                 `json:"status"`
	Success *bool                  `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func (r *nodeResponse) ok() bool {
	if r.Success != nil {
		return *r.Success
	}
	return r.Status == "success" || r.Status == "ok"
}

// CreateAccount asks the node agent on the given server to provision one
// account and normalizes the reply. The returned result always matches
// req.Protocol; a payload that cannot be mapped is an ErrBackend.
func (c *NodeClient) CreateAccount(ctx context.Context, server *models.Server, req *models.ProvisioningRequest) (*models.AccountResult, error) {
	// 日志脱敏: 不记录 password 等凭证字段
	log.Printf("[NodeClient] Creating %s account on %s (user: %s)", req.Protocol, server.Domain, req.Username)

	endpoint := c.createURL(server, req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// url.Error echoes the full URL including the password and auth
		// query parameters; report only the underlying cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: send request: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	var nodeResp nodeResponse
	if err := json.Unmarshal(respBody, &nodeResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrBackend, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		errMsg := nodeResp.Message
		if errMsg == "" {
			errMsg = string(respBody)
		}
		return nil, fmt.Errorf("%w: node agent returned status %d: %s", ErrBackend, resp.StatusCode, errMsg)
	}

	if !nodeResp.ok() {
		errMsg := nodeResp.Message
		if errMsg == "" {
			errMsg = "node agent reported failure"
		}
		return nil, fmt.Errorf("%w: %s", ErrBackend, errMsg)
	}

	result, err := c.normalize(server, req, nodeResp.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	log.Printf("[NodeClient] Account created: %s@%s (%s)", result.Username, result.Domain, result.Protocol)
	return result, nil
}

// createURL builds the protocol-specific create endpoint with the query
// parameters the node agents expect.
func (c *NodeClient) createURL(server *models.Server, req *models.ProvisioningRequest) string {
	q := url.Values{}
	q.Set("user", req.Username)
	q.Set("exp", strconv.Itoa(req.Duration))
	q.Set("iplimit", strconv.Itoa(req.IPLimit))
	q.Set("auth", server.Auth)
	if req.Password != "" {
		q.Set("password", req.Password)
	}
	if req.Quota > 0 {
		q.Set("quota", strconv.Itoa(req.Quota))
	}

	return fmt.Sprintf("%s://%s/create%s?%s", c.scheme, server.Domain, req.Protocol, q.Encode())
}
