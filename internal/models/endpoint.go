package models

import (
	"fmt"
	"net"
	"strconv"
)

// Endpoint is a network address a running resource listens on.
type Endpoint struct {
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
}

func (e Endpoint) IsZero() bool {
	return e.Host == "" && e.Port == 0
}

func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) URL() string {
	if e.IsZero() {
		return ""
	}
	scheme := e.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/", scheme, e.Address())
}
