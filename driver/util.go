package driver

import (
	"errors"
	"io"
	"net"
	"sort"
	"strings"
	"syscall"

	"s7bench/s7"
)

// IsConnectionError checks if an error indicates the PLC link is gone,
// as opposed to a rejected item or a configuration problem.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, s7.ErrConnection) || errors.Is(err, io.EOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	connectionKeywords := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"use of closed network connection",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection timed out",
		"forcibly closed",
		"not connected",
	}
	for _, keyword := range connectionKeywords {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

// attribute names the tag a read error belongs to.
func attribute(tag string, err error) error {
	var re *s7.ReadError
	if errors.As(err, &re) {
		return &s7.ReadError{Tag: tag, Err: re.Err}
	}
	return &s7.ReadError{Tag: tag, Err: err}
}

// sortedNames returns the tag names in ascending order.
func sortedNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
