package hostpolicy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	robotsTxtPath      = "/robots.txt"
	maxRobotsBodyBytes = 512 * 1024
)

// ParseRobots returns the Disallow prefixes of every group addressed to "*"
// or to agent. Consecutive User-agent lines form one group. An empty
// Disallow contributes nothing. A trailing "*" is dropped so the rule is a
// plain prefix; a bare "*" becomes "/".
func ParseRobots(r io.Reader, agent string) ([]string, error) {
	agent = strings.ToLower(strings.TrimSpace(agent))

	var (
		disallowed  []string
		groupAgents []string
		inRules     bool
		matching    bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRobotsBodyBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if inRules {
				groupAgents = nil
				inRules = false
			}
			groupAgents = append(groupAgents, strings.ToLower(value))
			matching = agentMatches(groupAgents, agent)
		case "disallow":
			inRules = true
			if !matching || value == "" {
				continue
			}
			prefix := strings.TrimSuffix(value, "*")
			if prefix == "" {
				prefix = "/"
			}
			disallowed = append(disallowed, prefix)
		case "allow", "crawl-delay", "sitemap":
			inRules = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read robots.txt: %w", err)
	}

	return disallowed, nil
}

func agentMatches(groupAgents []string, agent string) bool {
	for _, ua := range groupAgents {
		if ua == "*" || (agent != "" && ua == agent) {
			return true
		}
	}
	return false
}

// PathDisallowed reports whether path starts with any disallowed prefix.
func PathDisallowed(path string, disallowed []string) bool {
	if path == "" {
		path = "/"
	}
	for _, prefix := range disallowed {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// fetchRobots downloads and parses origin/robots.txt.
func (p *Policy) fetchRobots(ctx context.Context, origin string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.robotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+robotsTxtPath, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build robots request: %w", err)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	return ParseRobots(io.LimitReader(resp.Body, maxRobotsBodyBytes), p.agentName)
}
