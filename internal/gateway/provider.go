package gateway

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/cloo-solutions/semantrics/internal/domain"
)

// Provider isolates one search provider's URL scheme and response shape.
type Provider interface {
	Name() string
	DefaultBaseURL() string
	SearchURL(baseURL, query string) string
	Decode(body []byte) ([]domain.ResultRecord, error)
}

const (
	ProviderNPMS     = "npms"
	ProviderRegistry = "registry"
)

// NewProvider selects an adapter by configuration name.
func NewProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderNPMS, "":
		return NPMSProvider{}, nil
	case ProviderRegistry, "npm":
		return RegistryProvider{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, name)
	}
}

type packageLinks struct {
	NPM        string `json:"npm"`
	Homepage   string `json:"homepage"`
	Repository string `json:"repository"`
}

type packageInfo struct {
	Name        string       `json:"name"`
	Version     string       `json:"version"`
	Description string       `json:"description"`
	Links       packageLinks `json:"links"`
}

type packageHit struct {
	Package *packageInfo `json:"package"`
}

func (p packageInfo) record(link string) domain.ResultRecord {
	return domain.ResultRecord{
		EntityID:    domain.EntityIDFor(p.Name, p.Version),
		Title:       p.Name,
		Version:     p.Version,
		Description: p.Description,
		TargetURL:   link,
	}
}

// decodeHits unmarshals body, requires the top-level key and a package on
// every hit, then ranks the records in response order.
func decodeHits(body []byte, key string, link func(packageLinks) string) ([]domain.ResultRecord, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	raw, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("response is missing %q", key)
	}

	var hits []packageHit
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", key, err)
	}

	records := make([]domain.ResultRecord, 0, len(hits))
	for i, hit := range hits {
		if hit.Package == nil || hit.Package.Name == "" {
			return nil, fmt.Errorf("%s[%d] has no package name", key, i)
		}
		records = append(records, hit.Package.record(link(hit.Package.Links)))
	}

	return domain.Rank(records), nil
}

// NPMSProvider reads api.npms.io: {"results":[{"package":{...,"links":{"npm":...}}}]}.
type NPMSProvider struct{}

func (NPMSProvider) Name() string { return ProviderNPMS }
func (NPMSProvider) DefaultBaseURL() string { return "https://api.npms.io" }

func (NPMSProvider) SearchURL(baseURL, query string) string {
	return strings.TrimRight(baseURL, "/") + "/v2/search?q=" + url.QueryEscape(query)
}

func (NPMSProvider) Decode(body []byte) ([]domain.ResultRecord, error) {
	return decodeHits(body, "results", func(l packageLinks) string { return l.NPM })
}

// RegistryProvider reads registry.npmjs.org: {"objects":[{"package":{...}}]}.
// Its links are sparser, so the canonical URL falls back to homepage and
// repository.
type RegistryProvider struct{}

func (RegistryProvider) Name() string { return ProviderRegistry }
func (RegistryProvider) DefaultBaseURL() string { return "https://registry.npmjs.org" }

func (RegistryProvider) SearchURL(baseURL, query string) string {
	return strings.TrimRight(baseURL, "/") + "/-/v1/search?text=" + url.QueryEscape(query)
}

func (RegistryProvider) Decode(body []byte) ([]domain.ResultRecord, error) {
	return decodeHits(body, "objects", func(l packageLinks) string {
		switch {
		case l.NPM != "":
			return l.NPM
		case l.Homepage != "":
			return l.Homepage
		default:
			return l.Repository
		}
	})
}
