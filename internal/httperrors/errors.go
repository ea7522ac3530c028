// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors provides user-friendly error handling for calls to the
// language-model endpoint.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"sqlchat/cli/internal/llm"
)

// Category is the detected failure class.
type Category string

const (
	Timeout   Category = "timeout"
	DNS       Category = "dns"
	Refused   Category = "connection_refused"
	TLS       Category = "tls"
	Auth      Category = "auth"
	RateLimit Category = "rate_limit"
	Server    Category = "server"
	Generic   Category = "generic"
)

// Classify detects common error types: timeouts, DNS, refused connections,
// TLS failures and HTTP status classes.
func Classify(err error) Category {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return Auth
		case apiErr.Status == http.StatusTooManyRequests:
			return RateLimit
		case apiErr.Status >= 500:
			return Server
		}
		return Generic
	}
	switch {
	case isTimeoutError(err):
		return Timeout
	case isDNSError(err):
		return DNS
	case isConnectionRefusedError(err):
		return Refused
	case isSSLError(err):
		return TLS
	}
	return Generic
}

// FormatNetworkError prints a friendly explanation for err and returns it wrapped.
func FormatNetworkError(err error, context, host string) error {
	if err == nil {
		return nil
	}
	title, lines := Describe(err, context, host)
	pterm.Println(title)
	pterm.Println()
	for _, l := range lines {
		pterm.Println(l)
	}
	pterm.Println()
	return fmt.Errorf("network error: %w", err)
}

// Describe returns the headline and troubleshooting lines for err.
func Describe(err error, context, host string) (string, []string) {
	if host == "" {
		host = "the model endpoint"
	}
	switch Classify(err) {
	case Timeout:
		return fmt.Sprintf("⏱️  Connection timeout while %s", context), []string{
			"The model endpoint took too long to respond. This could mean:",
			"  • Slow internet connection",
			"  • The provider is under heavy load",
			"Please try again in a few moments.",
		}
	case DNS:
		return fmt.Sprintf("🌐 Cannot resolve server address while %s", context), []string{
			fmt.Sprintf("Unable to look up %s. Please check:", host),
			"  • Your internet connection is working",
			"  • DNS settings are correct",
		}
	case Refused:
		return fmt.Sprintf("🚫 Connection refused while %s", context), []string{
			"The server is not accepting connections. Check the base URL and port.",
		}
	case TLS:
		return fmt.Sprintf("🔒 Secure connection failed while %s", context), []string{
			"Cannot establish a secure HTTPS connection. Try:",
			"  • Check your system date and time",
			"  • Verify network proxy settings",
		}
	case Auth:
		return fmt.Sprintf("🔑 The API key was rejected while %s", context), []string{
			"Run 'sqlchat login' to store a new key, or set GROQ_API_KEY.",
		}
	case RateLimit:
		return fmt.Sprintf("🐢 Rate limited while %s", context), []string{
			"The provider is throttling requests. Wait a moment and ask again.",
		}
	case Server:
		return fmt.Sprintf("⚠️  Server error while %s", context), []string{
			fmt.Sprintf("%s returned an internal error. This is not a problem with your setup.", host),
		}
	}
	details := err.Error()
	if len(details) > 100 {
		details = details[:100] + "..."
	}
	return fmt.Sprintf("❌ Cannot reach %s while %s", host, context), []string{
		"Please check your internet connection and firewall settings.",
		"Technical details: " + details,
	}
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
