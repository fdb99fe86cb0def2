// Package catalog fetches collections from the Shopify Admin GraphQL API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/models"
)

const (
	requestTimeout = 30 * time.Second
	pageSize       = 50
	productSample  = models.MaxProductSample
	maxPages       = 400
	maxBodyBytes   = 20 << 20
)

const gidPrefix = "gid://shopify/Collection/"

// collectionsQuery pages through collections with a small product sample
// each. The page size keeps the query cost under the API's per-request limit.
const collectionsQuery = `query getCollections($first: Int!, $cursor: String, $products: Int!) {
  collections(first: $first, after: $cursor) {
    edges {
      node {
        id
        handle
        title
        descriptionHtml
        updatedAt
        products(first: $products) { edges { node { title } } }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

// Collection is one collection as the catalog reports it.
type Collection struct {
	ExternalID      string
	Handle          string
	Title           string
	DescriptionHTML string
	ProductTitles   []string
	UpdatedAt       *time.Time
}

// ErrUnauthorized is returned when the shop's access token is rejected.
var ErrUnauthorized = errors.New("catalog: access token rejected")

// Client talks to the Admin GraphQL endpoint of any shop.
type Client struct {
	apiVersion string
	httpClient *http.Client
	log        *logrus.Logger
	maxRetries uint64
	baseDelay  time.Duration

	// endpoint overrides the per-shop URL, used by tests.
	endpoint func(domain string) string
}

// NewClient creates a Client for the given Admin API version.
func NewClient(apiVersion string, log *logrus.Logger) *Client {
	return &Client{
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

func (c *Client) url(domain string) string {
	if c.endpoint != nil {
		return c.endpoint(domain)
	}

	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, c.apiVersion)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type collectionsResponse struct {
	Data struct {
		Collections struct {
			Edges []struct {
				Node struct {
					ID              string     `json:"id"`
					Handle          string     `json:"handle"`
					Title           string     `json:"title"`
					DescriptionHTML string     `json:"descriptionHtml"`
					UpdatedAt       *time.Time `json:"updatedAt"`
					Products        struct {
						Edges []struct {
							Node struct {
								Title string `json:"title"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"products"`
				} `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"collections"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchCollections returns every collection of the shop, following cursors
// until the last page.
func (c *Client) FetchCollections(ctx context.Context, shop models.ShopCredentials) ([]Collection, error) {
	var (
		out    []Collection
		cursor *string
	)

	for page := 0; page < maxPages; page++ {
		resp, err := c.fetchPage(ctx, shop, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetching collections page %d: %w", page+1, err)
		}

		for _, e := range resp.Data.Collections.Edges {
			n := e.Node

			titles := make([]string, 0, len(n.Products.Edges))
			for _, p := range n.Products.Edges {
				titles = append(titles, p.Node.Title)
			}

			out = append(out, Collection{
				ExternalID:      strings.TrimPrefix(n.ID, gidPrefix),
				Handle:          n.Handle,
				Title:           n.Title,
				DescriptionHTML: n.DescriptionHTML,
				ProductTitles:   titles,
				UpdatedAt:       n.UpdatedAt,
			})
		}

		info := resp.Data.Collections.PageInfo
		if !info.HasNextPage || info.EndCursor == "" {
			c.log.WithFields(logrus.Fields{
				"shop":        shop.Domain,
				"collections": len(out),
				"pages":       page + 1,
			}).Debug("catalog fetch complete")

			return out, nil
		}

		next := info.EndCursor
		cursor = &next
	}

	return nil, fmt.Errorf("catalog for %s exceeds %d pages", shop.Domain, maxPages)
}

func (c *Client) fetchPage(ctx context.Context, shop models.ShopCredentials, cursor *string) (*collectionsResponse, error) {
	body, err := json.Marshal(graphQLRequest{
		Query: collectionsQuery,
		Variables: map[string]any{
			"first":    pageSize,
			"cursor":   cursor,
			"products": productSample,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.WithJitterPercent(20, retry.NewExponential(c.baseDelay)))

	var result collectionsResponse

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		result = collectionsResponse{}

		return c.post(ctx, shop, body, &result)
	})
	if err != nil {
		return nil, err
	}

	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.Message
		}

		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}

	return &result, nil
}

// post sends one request. Throttling, server errors and transport failures
// are marked retryable.
func (c *Client) post(ctx context.Context, shop models.ShopCredentials, body []byte, out *collectionsResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(shop.Domain), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", shop.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(fmt.Errorf("calling admin API: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20)) //nolint:errcheck // best-effort drain before close.
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20)) //nolint:errcheck // best-effort drain before close.
		return retry.RetryableError(fmt.Errorf("admin API returned status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20)) //nolint:errcheck // best-effort drain before close.
		return fmt.Errorf("admin API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding admin API response: %w", err)
	}

	return nil
}
