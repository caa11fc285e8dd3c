// Package profile persists cluster connection profiles.
package profile

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// Profile defaults.
const (
	DefaultPort  = 3000
	DefaultColor = "#0097D3"
	DefaultID    = "conn-default"
	DefaultName  = "Default Cluster"
)

var (
	ErrNotFound = errors.New("profile: not found")
	ErrInvalid  = errors.New("profile: invalid")
)

// Profile describes how to reach one cluster. Hosts may carry their own
// ":port"; Port applies to the ones that do not.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Hosts       []string  `json:"hosts"`
	Port        int       `json:"port"`
	ClusterName string    `json:"clusterName,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Normalize trims names and hosts, drops empty and repeated hosts and fills
// in the default port and color.
func (p *Profile) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.ClusterName = strings.TrimSpace(p.ClusterName)
	p.Color = strings.TrimSpace(p.Color)

	hosts := make([]string, 0, len(p.Hosts))
	for _, h := range p.Hosts {
		h = strings.TrimSpace(h)
		if h == "" || slices.Contains(hosts, h) {
			continue
		}
		hosts = append(hosts, h)
	}
	p.Hosts = hosts

	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
}

// Validate reports a profile that cannot be connected to.
func (p Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(p.Hosts) == 0 {
		errs = append(errs, errors.New("at least one host is required"))
	}
	if p.Port < 1 || p.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", p.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ParseHostPort splits an optional ":port" suffix off host. A missing or
// unparsable port yields the whole string and defaultPort.
func ParseHostPort(host string, defaultPort int) (string, int) {
	h, p, err := net.SplitHostPort(host)
	if err != nil {
		return host, defaultPort
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 1 || port > 65535 {
		return host, defaultPort
	}
	return h, port
}
