package gst

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"sourzka.org/internal/obs"
)

// DefaultPortalURL is the public taxpayer search page.
const DefaultPortalURL = "https://services.gst.gov.in/services/searchtp"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

// ErrInvalidGSTIN is returned for malformed identifiers.
var ErrInvalidGSTIN = errors.New("gst: invalid GSTIN format")

// Selectors tried in order when extracting the legal name.
var legalNameSelectors = []string{"#lblEntlglTradNm", ".taxpayer-legal-name"}

// PortalClient scrapes the taxpayer search page of the GST portal.
type PortalClient struct {
	baseURL string
	client  *http.Client
}

// NewPortalClient returns a client for baseURL (DefaultPortalURL when empty).
func NewPortalClient(baseURL string, timeout time.Duration) *PortalClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultPortalURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PortalClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// LegalName fetches the taxpayer page for gstin and extracts the legal name.
func (c *PortalClient) LegalName(ctx context.Context, gstin string) (string, error) {
	gstin = Normalize(gstin)
	if !Valid(gstin) {
		return "", ErrInvalidGSTIN
	}

	target, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("gst: parse portal url: %w", err)
	}
	q := target.Query()
	q.Set("searchval", gstin)
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.client.Do(req)
	if err != nil {
		obs.GSTINLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("gst: portal request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		obs.GSTINLookups.WithLabelValues("miss").Inc()
		return "", nil
	case resp.StatusCode != http.StatusOK:
		obs.GSTINLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("gst: portal returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		obs.GSTINLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("gst: parse portal page: %w", err)
	}
	name := extractLegalName(doc)
	if name == "" {
		obs.GSTINLookups.WithLabelValues("miss").Inc()
		obs.FromContext(ctx).Warn("gst: legal name not found in portal page", zap.String("gstin", gstin))
		return "", nil
	}
	obs.GSTINLookups.WithLabelValues("hit").Inc()
	return name, nil
}

func extractLegalName(doc *goquery.Document) string {
	for _, sel := range legalNameSelectors {
		if name := strings.TrimSpace(doc.Find(sel).First().Text()); name != "" {
			return name
		}
	}
	return ""
}
