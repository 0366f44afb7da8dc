package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

// Share-link builders for the xray protocol family. Formats follow the
// de-facto client conventions: vmess:// wraps a base64 JSON document,
// vless:// and trojan:// are URL-shaped with the display name in the
// fragment.

type vmessLink struct {
	V    string `json:"v"`
	PS   string `json:"ps"`
	Add  string `json:"add"`
	Port string `json:"port"`
	ID   string `json:"id"`
	Aid  string `json:"aid"`
	Net  string `json:"net"`
	Type string `json:"type"`
	Host string `json:"host"`
	Path string `json:"path"`
	TLS  string `json:"tls"`
}

func buildVMessLink(name, id, domain, port, network, tls string) string {
	doc := vmessLink{
		V:    "2",
		PS:   name,
		Add:  domain,
		Port: port,
		ID:   id,
		Aid:  "0",
		Net:  network,
		Type: "none",
		Host: domain,
		Path: "/vmess",
		TLS:  tls,
	}
	raw, _ := json.Marshal(doc)
	return "vmess://" + base64.StdEncoding.EncodeToString(raw)
}

func buildURILink(scheme, secret, domain, port, security, network, name string) string {
	q := url.Values{}
	q.Set("security", security)
	q.Set("type", network)
	if network == "grpc" {
		q.Set("serviceName", scheme+"-grpc")
	} else {
		q.Set("path", "/"+scheme)
		q.Set("host", domain)
	}
	if security == "tls" {
		q.Set("sni", domain)
	}
	return fmt.Sprintf("%s://%s@%s:%s?%s#%s",
		scheme, secret, domain, port, q.Encode(), url.PathEscape(name))
}

// fillMissingLinks synthesizes the TLS, non-TLS and gRPC share links that
// the node agent left out. Existing links are kept as-is.
func fillMissingLinks(xray *models.XrayAccount, protocol, username, domain string) {
	name := username + "@" + domain

	switch protocol {
	case models.ProtocolVMess:
		if xray.TLSLink == "" {
			xray.TLSLink = buildVMessLink(name, xray.UUID, domain, "443", "ws", "tls")
		}
		if xray.NonTLSLink == "" {
			xray.NonTLSLink = buildVMessLink(name, xray.UUID, domain, "80", "ws", "none")
		}
		if xray.GRPCLink == "" {
			xray.GRPCLink = buildVMessLink(name, xray.UUID, domain, "443", "grpc", "tls")
		}

	case models.ProtocolVLESS:
		if xray.TLSLink == "" {
			xray.TLSLink = buildURILink("vless", xray.UUID, domain, "443", "tls", "ws", name)
		}
		if xray.NonTLSLink == "" {
			xray.NonTLSLink = buildURILink("vless", xray.UUID, domain, "80", "none", "ws", name)
		}
		if xray.GRPCLink == "" {
			xray.GRPCLink = buildURILink("vless", xray.UUID, domain, "443", "tls", "grpc", name)
		}

	case models.ProtocolTrojan:
		secret := xray.Password
		if secret == "" {
			secret = xray.UUID
		}
		if xray.TLSLink == "" {
			xray.TLSLink = buildURILink("trojan", secret, domain, "443", "tls", "ws", name)
		}
		if xray.NonTLSLink == "" {
			xray.NonTLSLink = buildURILink("trojan", secret, domain, "80", "none", "ws", name)
		}
		if xray.GRPCLink == "" {
			xray.GRPCLink = buildURILink("trojan", secret, domain, "443", "tls", "grpc", name)
		}
	}
}
