package vin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/vindexhq/vindex/internal/domain"
)

const defaultVPICBaseURL = "https://vpic.nhtsa.dot.gov/api/vehicles"

// VPICClient decodes VINs against the NHTSA vPIC service. Decodes are
// best-effort: every failure is returned to the caller, which treats it as
// research inconclusiveness. Results are cached because auction re-listings
// hit the same VINs repeatedly, and requests are rate limited to stay
// inside the public API's tolerance.
type VPICClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	limiter    *rate.Limiter
}

func NewVPICClient(baseURL string, timeout time.Duration) *VPICClient {
	if baseURL == "" {
		baseURL = defaultVPICBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VPICClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(24*time.Hour, 1*time.Hour),
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
	}
}

type vpicResponse struct {
	Results []struct {
		Variable string `json:"Variable"`
		Value    string `json:"Value"`
	} `json:"Results"`
}

func (c *VPICClient) Decode(ctx context.Context, rawVIN string) (*domain.DecodedVIN, error) {
	v := Normalize(rawVIN)
	if v == "" {
		return nil, fmt.Errorf("empty vin")
	}

	if hit, ok := c.cache.Get(v); ok {
		decoded := hit.(domain.DecodedVIN)
		return &decoded, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("vin decoder rate limit: %w", err)
	}

	endpoint := fmt.Sprintf("%s/DecodeVin/%s?format=json", c.baseURL, url.PathEscape(v))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create decode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vin decode request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vin decoder returned status %d: %s", resp.StatusCode, string(body))
	}

	var result vpicResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal decode response: %w", err)
	}

	decoded := domain.DecodedVIN{}
	for _, r := range result.Results {
		if r.Value == "" {
			continue
		}
		switch r.Variable {
		case "Model Year":
			if y, err := strconv.Atoi(r.Value); err == nil {
				decoded.Year = y
			}
		case "Make":
			decoded.Make = r.Value
		case "Model":
			decoded.Model = r.Value
		}
	}

	if decoded.Year == 0 && decoded.Make == "" {
		return nil, fmt.Errorf("vin %s did not decode", v)
	}

	c.cache.Set(v, decoded, cache.DefaultExpiration)
	return &decoded, nil
}
