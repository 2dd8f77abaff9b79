package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

func loadKeyFile(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parsePEM(b)
}

func parsePEM(b []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("no PEM block")
	}
	keyAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rk, ok := keyAny.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("PEM is not an RSA public key")
	}
	return rk, nil
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// selectJWK picks the key with kid when one is configured, else the first
// RSA signing key usable for RS256.
func selectJWK(keys []jwk, kid string) (*rsa.PublicKey, error) {
	for _, k := range keys {
		if k.Kty != "RSA" {
			continue
		}
		if kid != "" && k.Kid != kid {
			continue
		}
		if kid == "" && !((k.Use == "" || k.Use == "sig") && (k.Alg == "" || strings.EqualFold(k.Alg, "RS256"))) {
			continue
		}
		n, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("bad jwks.n: %w", err)
		}
		e, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("bad jwks.e: %w", err)
		}
		exp := 0
		for _, v := range e {
			exp = exp<<8 | int(v)
		}
		if exp == 0 {
			exp = 65537
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil
	}
	return nil, errors.New("no suitable RSA key in JWKS")
}

func (m *Middleware) backgroundRefresh(ctx context.Context) {
	for {
		sleep := m.getCacheTTL()
		if sleep < 5*time.Second {
			sleep = 5 * time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
		if err := m.refreshKey(ctx); err != nil {
			m.log.Warn("assertion key refresh failed", zap.Error(err))
		}
	}
}

func (m *Middleware) refreshKey(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.KeyURL, nil)
	if err != nil {
		return err
	}
	if etag := m.getETag(); etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	req.Header.Set("Accept", "*/*")

	res, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotModified && m.getKey() != nil {
		m.mu.Lock()
		m.updateCacheTTLLocked(res)
		m.lastFetch = time.Now()
		m.mu.Unlock()
		return nil
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("key fetch %s: %s", m.cfg.KeyURL, res.Status)
	}

	var pub *rsa.PublicKey
	ct := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ct, "json") || strings.HasSuffix(strings.ToLower(m.cfg.KeyURL), ".json") {
		var set struct {
			Keys []jwk `json:"keys"`
		}
		if err := json.NewDecoder(res.Body).Decode(&set); err != nil {
			return err
		}
		if pub, err = selectJWK(set.Keys, m.cfg.KeyKID); err != nil {
			return err
		}
	} else {
		b, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}
		if pub, err = parsePEM(b); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.key = pub
	m.etag = res.Header.Get("ETag")
	m.updateCacheTTLLocked(res)
	m.lastFetch = time.Now()
	m.mu.Unlock()
	return nil
}

// updateCacheTTLLocked honours Cache-Control max-age (minimum 5s). m.mu held.
func (m *Middleware) updateCacheTTLLocked(res *http.Response) {
	for _, p := range strings.Split(res.Header.Get("Cache-Control"), ",") {
		p = strings.TrimSpace(strings.ToLower(p))
		if v, ok := strings.CutPrefix(p, "max-age="); ok {
			if s, err := strconv.Atoi(v); err == nil && s >= 5 {
				m.cacheTTL = time.Duration(s) * time.Second
				return
			}
		}
	}
}

func (m *Middleware) getKey() *rsa.PublicKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key
}

func (m *Middleware) getETag() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.etag
}

func (m *Middleware) getCacheTTL() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cacheTTL
}
