package manifest

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Validate normalizes in place and rejects unusable values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Contract.Source) == "" {
		return errors.New("contract.source is required")
	}
	if strings.TrimSpace(c.Inventory.Source) == "" {
		return errors.New("inventory.source is required")
	}

	dp := strings.TrimSpace(c.Contract.DocsPath)
	if dp == "" {
		dp = Defaults().Contract.DocsPath
	}
	if !strings.HasPrefix(dp, "/") {
		dp = "/" + dp
	}
	c.Contract.DocsPath = path.Clean(dp)

	u, err := url.Parse(strings.TrimSpace(c.Ledger.Endpoint))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ledger.endpoint %q must be an http(s) URL", c.Ledger.Endpoint)
	}
	c.Ledger.Endpoint = strings.TrimRight(u.String(), "/")
	if c.Ledger.TimeoutMS < 0 {
		return errors.New("ledger.timeout_ms must be >= 0")
	}

	h := strings.TrimSpace(c.Dispatch.CallerHeader)
	if h == "" {
		h = Defaults().Dispatch.CallerHeader
	}
	if strings.ContainsAny(h, " :\t") {
		return fmt.Errorf("dispatch.caller_header %q is not a valid header name", h)
	}
	c.Dispatch.CallerHeader = http.CanonicalHeaderKey(h)
	if c.Dispatch.TimeoutMS < 0 {
		return errors.New("dispatch.timeout_ms must be >= 0")
	}

	users := c.Wallet.SystemUsers[:0]
	for _, u := range c.Wallet.SystemUsers {
		if u = strings.TrimSpace(u); u != "" {
			users = append(users, u)
		}
	}
	c.Wallet.SystemUsers = users
	if c.Wallet.Require && strings.TrimSpace(c.Wallet.Dir) == "" {
		return errors.New("wallet.dir is required when wallet.require is set")
	}
	return nil
}
