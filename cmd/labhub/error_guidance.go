package main

import (
	"context"
	"errors"
	"net"

	"labhub/internal/api"
)

// errCodeInvalidCredentials mirrors the server's login failure code.
const errCodeInvalidCredentials = 1030

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: set LABHUB_API_TOKEN to a token from: labhub admin login <email> --password-stdin")
		case "conflict":
			lines = append(lines, "hint: an account with that email already exists.")
		}
		if api.HasErrorCode(err, errCodeInvalidCredentials) {
			lines = append(lines, "hint: check the admin email and password; passwords are read from stdin.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify LABHUB_API_URL points to a labhub server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase LABHUB_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a labhub server is running at LABHUB_API_URL.",
			"hint: start local server manually with: labhub srv",
			"hint: you can increase LABHUB_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
