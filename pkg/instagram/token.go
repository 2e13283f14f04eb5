package instagram

import (
	"context"
	"io"
	"strings"

	"igpost/pkg/errors"
)

const csrfCookie = "csrftoken="

// FetchToken loads the platform root page and returns the CSRF token from
// its cookies. A fresh token is fetched on every call.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, c.baseURL+"/")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	token, err := ParseCSRFToken(resp.Header.Values("Set-Cookie"))
	if err != nil {
		c.logger.WarnWithFields("csrf token missing from root page", map[string]interface{}{
			"cookies": len(resp.Header.Values("Set-Cookie")),
		})
		return "", err
	}

	return token, nil
}

// ParseCSRFToken extracts the csrftoken value from Set-Cookie header values.
// Multiple values are treated as one "; " separated string.
func ParseCSRFToken(setCookie []string) (string, error) {
	if len(setCookie) == 0 {
		return "", errors.NewTokenNotFound("csrf token not found")
	}

	header := strings.Join(setCookie, "; ")
	for _, part := range strings.Split(header, ";") {
		if !strings.Contains(part, csrfCookie) {
			continue
		}
		_, value, _ := strings.Cut(part, "=")
		return value, nil
	}

	return "", errors.NewTokenNotFound("csrf token not found in cookie string")
}
