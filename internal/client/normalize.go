package client

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

// normalize maps the node agent's untyped payload into the typed account
// result. Agent builds disagree on field names and omit fields freely, so
// every read is defensive and sane defaults are synthesized instead of
// passing gaps through.
func (c *NodeClient) normalize(server *models.Server, req *models.ProvisioningRequest, data map[string]interface{}) (*models.AccountResult, error) {
	result := &models.AccountResult{
		Username: stringField(data, req.Username, "username", "user"),
		Domain:   stringField(data, server.Domain, "domain", "host"),
		Expired:  stringField(data, defaultExpiry(req.Duration), "expired", "expiry", "exp"),
		IPLimit:  stringField(data, strconv.Itoa(req.IPLimit), "ip_limit", "iplimit", "limit_ip"),
		Protocol: req.Protocol,
	}
	if req.Quota > 0 {
		result.Quota = stringField(data, fmt.Sprintf("%dGB", req.Quota), "quota")
	}

	switch req.Protocol {
	case models.ProtocolSSH:
		password := stringField(data, req.Password, "password", "pass")
		if password == "" {
			return nil, fmt.Errorf("ssh payload missing password")
		}
		result.SSH = &models.SSHAccount{
			Password: password,
			WSPort:   stringField(data, c.sshWSPort, "ssh_ws_port", "ws_port"),
			SSLPort:  stringField(data, c.sshTLSPort, "ssh_ssl_port", "ssl_port"),
		}

	case models.ProtocolVMess, models.ProtocolVLESS, models.ProtocolTrojan:
		id := stringField(data, "", "uuid", "id")
		if id == "" {
			return nil, fmt.Errorf("%s payload missing uuid", req.Protocol)
		}
		xray := &models.XrayAccount{
			UUID:     id,
			NSDomain: stringField(data, "", "ns_domain", "nsdomain"),
		}
		if req.Protocol == models.ProtocolTrojan {
			xray.Password = stringField(data, req.Password, "password", "pass")
		}
		prefix := req.Protocol + "_"
		xray.TLSLink = stringField(data, "", prefix+"tls_link", "tls_link")
		xray.NonTLSLink = stringField(data, "", prefix+"nontls_link", prefix+"nontls_link1", "nontls_link")
		xray.GRPCLink = stringField(data, "", prefix+"grpc_link", "grpc_link")

		// Older agents answer with credentials only; rebuild the share
		// links the panel shows from uuid + domain.
		fillMissingLinks(xray, req.Protocol, result.Username, result.Domain)

		// VLESS clients resolve the nameserver from a derived subdomain
		// when the agent does not hand one back.
		if xray.NSDomain == "" && req.Protocol == models.ProtocolVLESS {
			xray.NSDomain = "ns." + result.Domain
		}

		result.Xray = xray

	default:
		return nil, fmt.Errorf("unsupported protocol %q", req.Protocol)
	}

	return result, nil
}

// stringField reads the first present key as a string, tolerating numeric
// JSON values, and falls back to def.
func stringField(data map[string]interface{}, def string, keys ...string) string {
	for _, key := range keys {
		v, ok := data[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			return strconv.Itoa(t)
		}
	}
	return def
}

func defaultExpiry(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}
