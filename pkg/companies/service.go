// Package companies exposes the Companies House public data endpoints as
// typed methods. Single-record endpoints decode directly; list endpoints
// return paginated lists backed by pkg/pagination.
package companies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/registrant/companies-house-client/pkg/pagination"
)

// DefaultItemsPerPage is the page size requested from list endpoints.
const DefaultItemsPerPage = 50

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("resource not found")

// Getter performs authenticated GET requests against the Companies House
// API. *client.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, endpoint string) (*http.Response, error)
}

// Config holds the service configuration.
type Config struct {
	// ItemsPerPage is the page size requested from list endpoints.
	// Defaults to DefaultItemsPerPage.
	ItemsPerPage int

	// Pagination configures fetch timeouts and concurrency for the
	// returned lists.
	Pagination pagination.Config
}

// DefaultServiceConfig returns a safe default configuration.
func DefaultServiceConfig() Config {
	return Config{
		ItemsPerPage: DefaultItemsPerPage,
		Pagination:   pagination.DefaultConfig(),
	}
}

// Service wraps a Getter with typed endpoint methods.
type Service struct {
	getter Getter
	cfg    Config
	logger zerolog.Logger
}

// NewService creates a new endpoint service.
func NewService(getter Getter, cfg Config) (*Service, error) {
	if getter == nil {
		return nil, fmt.Errorf("getter is required")
	}
	if cfg.ItemsPerPage <= 0 {
		cfg.ItemsPerPage = DefaultItemsPerPage
	}
	def := pagination.DefaultConfig()
	if cfg.Pagination.FetchTimeout <= 0 {
		cfg.Pagination.FetchTimeout = def.FetchTimeout
	}
	if cfg.Pagination.MaxConcurrency <= 0 {
		cfg.Pagination.MaxConcurrency = def.MaxConcurrency
	}

	return &Service{
		getter: getter,
		cfg:    cfg,
		logger: log.With().Str("component", "ch-companies").Logger(),
	}, nil
}

// CompanyProfile fetches the full company record.
func (s *Service) CompanyProfile(ctx context.Context, companyNumber string) (*CompanyProfile, error) {
	endpoint := "/company/" + url.PathEscape(companyNumber)

	resp, err := s.getter.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("company %s: %w", companyNumber, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("company %s: unexpected status %d", companyNumber, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read company profile: %w", err)
	}

	var profile CompanyProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode company profile: %w", err)
	}
	return &profile, nil
}

// SearchCompanies returns a paginated list of companies matching the query.
func (s *Service) SearchCompanies(ctx context.Context, query string) (*pagination.List[CompanySearchItem], error) {
	params := url.Values{}
	params.Set("q", query)
	return newPagedList[CompanySearchItem](ctx, s, "/search/companies", params)
}

// OfficersOptions filters the officer list.
type OfficersOptions struct {
	// RegisterType restricts results to one register
	// (directors, secretaries, llp-members).
	RegisterType string

	// OrderBy sorts results (appointed_on, resigned_on, surname).
	OrderBy string
}

// Officers returns a paginated list of company officers.
func (s *Service) Officers(ctx context.Context, companyNumber string, opts OfficersOptions) (*pagination.List[OfficerSummary], error) {
	params := url.Values{}
	if opts.RegisterType != "" {
		params.Set("register_type", opts.RegisterType)
		params.Set("register_view", "true")
	}
	if opts.OrderBy != "" {
		params.Set("order_by", opts.OrderBy)
	}

	endpoint := "/company/" + url.PathEscape(companyNumber) + "/officers"
	return newPagedList[OfficerSummary](ctx, s, endpoint, params)
}

// FilingHistory returns a paginated list of the company's filings.
// category optionally restricts the list (accounts, officers, ...).
func (s *Service) FilingHistory(ctx context.Context, companyNumber, category string) (*pagination.List[Filing], error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}

	endpoint := "/company/" + url.PathEscape(companyNumber) + "/filing-history"
	return newPagedList[Filing](ctx, s, endpoint, params)
}

// PersonsWithSignificantControl returns a paginated list of the company's PSCs.
func (s *Service) PersonsWithSignificantControl(ctx context.Context, companyNumber string) (*pagination.List[PSC], error) {
	endpoint := "/company/" + url.PathEscape(companyNumber) + "/persons-with-significant-control"
	return newPagedList[PSC](ctx, s, endpoint, nil)
}

// newPagedList builds a paginated list over one Companies House list
// endpoint. The fetcher translates page offsets into start_index query
// parameters and the shared envelope into raw pages.
func newPagedList[T any](ctx context.Context, s *Service, endpoint string, params url.Values) (*pagination.List[T], error) {
	fetch := s.pageFetcher(endpoint, params)
	return pagination.NewList[T](ctx, fetch, decodeRecord[T], s.cfg.Pagination)
}

// pageFetcher returns a PageFetcher for one endpoint and base query.
func (s *Service) pageFetcher(endpoint string, params url.Values) pagination.PageFetcher {
	perPage := s.cfg.ItemsPerPage

	return func(ctx context.Context, offset int) (pagination.RawPage, error) {
		query := url.Values{}
		for name, values := range params {
			query[name] = values
		}
		query.Set("start_index", strconv.Itoa(offset*perPage))
		query.Set("items_per_page", strconv.Itoa(perPage))

		resp, err := s.getter.Get(ctx, endpoint+"?"+query.Encode())
		if err != nil {
			return pagination.RawPage{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
			// Past the end of the collection: an empty final page
			s.logger.Debug().
				Str("endpoint", endpoint).
				Int("offset", offset).
				Msg("Page offset past end of collection")
			return pagination.RawPage{
				PageSize: perPage,
				Total:    pagination.TotalUnknown,
			}, nil
		case resp.StatusCode == http.StatusNotFound:
			return pagination.RawPage{}, fmt.Errorf("%s: %w", endpoint, ErrNotFound)
		case resp.StatusCode != http.StatusOK:
			return pagination.RawPage{}, fmt.Errorf("%s: unexpected status %d", endpoint, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return pagination.RawPage{}, fmt.Errorf("read page: %w", err)
		}

		var env listEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return pagination.RawPage{}, fmt.Errorf("decode page envelope: %w", err)
		}

		// The declared page size must match what was requested. A server
		// that answers with a different size would misalign every offset
		// computed from it.
		declared := env.ItemsPerPage
		if declared == 0 {
			declared = perPage
		}
		if declared != perPage {
			return pagination.RawPage{}, fmt.Errorf("%s: server declared items_per_page %d, requested %d",
				endpoint, declared, perPage)
		}

		total := pagination.TotalUnknown
		if env.TotalResults != nil {
			total = *env.TotalResults
		}

		return pagination.RawPage{
			Items:    env.Items,
			PageSize: declared,
			Total:    total,
		}, nil
	}
}

// decodeRecord unmarshals one raw record into its typed form.
func decodeRecord[T any](raw json.RawMessage) (T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, err
	}
	return item, nil
}
