package dcsa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/boxlane/boxlane/internal/carrier/domain"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"golang.org/x/time/rate"
)

const (
	vesselSchedulesPath = "/v1/vessel-schedules"
	pointToPointPath    = "/v1/point-to-point-routes"

	nextPageCursorHeader = "Next-Page-Cursor"

	defaultPageLimit = 100
)

var ErrRateLimit = errors.New("carrier rate limit wait failed")

// Adapter speaks the DCSA commercial-schedules dialect shared by several
// carrier APIs. Carrier-specific factories configure the base URL and the
// API key header name.
type Adapter struct {
	carrierName  string
	sourceSystem string
	baseURL      string
	apiKey       string
	apiKeyHeader string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

type Option func(a *Adapter)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *Adapter) { a.httpClient = httpClient }
}

func WithAPIKeyHeader(header string) Option {
	return func(a *Adapter) { a.apiKeyHeader = header }
}

func WithSourceSystem(sourceSystem string) Option {
	return func(a *Adapter) { a.sourceSystem = sourceSystem }
}

func New(cfg domain.AdapterConfig, opts ...Option) (*Adapter, error) {
	if strings.TrimSpace(cfg.CarrierName) == "" || strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, domain.ErrInvalidConfig
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 2
	}

	a := &Adapter{
		carrierName:  scheduledomain.NormalizeCarrierName(cfg.CarrierName),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		apiKeyHeader: "API-Key",
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		a.httpClient = &http.Client{Timeout: timeout}
	}
	if a.sourceSystem == "" {
		a.sourceSystem = strings.ToLower(a.carrierName) + "-api"
	}

	return a, nil
}

func (a *Adapter) CarrierName() string {
	return a.carrierName
}

func (a *Adapter) FetchSchedules(ctx context.Context, req domain.ScheduleRequest) ([]scheduledomain.ScheduleMessage, error) {
	q := make(url.Values)
	if req.ServiceCode != "" {
		q.Set("carrierServiceCode", req.ServiceCode)
	}
	if req.VoyageNumber != "" {
		q.Set("carrierExportVoyageNumber", req.VoyageNumber)
	}
	if !req.DateFrom.IsZero() {
		q.Set("startDate", req.DateFrom.UTC().Format("2006-01-02"))
	}
	if !req.DateTo.IsZero() {
		q.Set("endDate", req.DateTo.UTC().Format("2006-01-02"))
	}

	schedules, err := a.fetchServiceSchedules(ctx, q, req.Cursor, req.Limit)
	if err != nil {
		return nil, err
	}

	var messages []scheduledomain.ScheduleMessage
	for _, schedule := range schedules {
		messages = append(messages, a.normalizeServiceSchedule(schedule)...)
	}
	return messages, nil
}

func (a *Adapter) FetchPointToPoint(ctx context.Context, req domain.PointToPointRequest) ([]domain.PointToPointRoute, error) {
	q := make(url.Values)
	q.Set("placeOfReceipt", scheduledomain.NormalizeUNLocode(req.OriginUNLocode))
	q.Set("placeOfDelivery", scheduledomain.NormalizeUNLocode(req.DestinationUNLocode))
	if !req.FromDate.IsZero() {
		q.Set("departureDateTime:gte", req.FromDate.UTC().Format(time.RFC3339))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	var routings []rawPointToPointRouting
	if _, err := a.doRequest(ctx, pointToPointPath, q, &routings); err != nil {
		return nil, err
	}

	routes := make([]domain.PointToPointRoute, 0, len(routings))
	for _, routing := range routings {
		routes = append(routes, a.normalizeRouting(routing))
	}
	return routes, nil
}

// DiscoverServices runs a broad unfiltered schedule query and collects the
// distinct (service code, name) pairs, used to bootstrap which services
// exist before detailed sync.
func (a *Adapter) DiscoverServices(ctx context.Context) ([]domain.ServiceInfo, error) {
	schedules, err := a.fetchServiceSchedules(ctx, make(url.Values), "", 0)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var services []domain.ServiceInfo
	for _, schedule := range schedules {
		code := strings.TrimSpace(schedule.CarrierServiceCode)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		services = append(services, domain.ServiceInfo{
			Code: code,
			Name: strings.TrimSpace(schedule.CarrierServiceName),
		})
	}
	return services, nil
}

func (a *Adapter) fetchServiceSchedules(ctx context.Context, q url.Values, cursor string, limit int) ([]rawServiceSchedule, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	q.Set("limit", strconv.Itoa(limit))

	var all []rawServiceSchedule
	for {
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page []rawServiceSchedule
		next, err := a.doRequest(ctx, vesselSchedulesPath, q, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if next == "" || len(page) == 0 {
			return all, nil
		}
		cursor = next
	}
}

// doRequest issues one GET and decodes the JSON body. Any non-2xx response is
// raised as a StatusError with the upstream status preserved. The returned
// string is the pagination cursor for the next page, if any.
func (a *Adapter) doRequest(ctx context.Context, path string, q url.Values, out any) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", errors.Join(err, ErrRateLimit)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set(a.apiKeyHeader, a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", domain.StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Header.Get(nextPageCursorHeader)), nil
}

func (a *Adapter) normalizeRouting(routing rawPointToPointRouting) domain.PointToPointRoute {
	route := domain.PointToPointRoute{
		OriginUNLocode:      scheduledomain.NormalizeUNLocode(routing.PlaceOfReceipt.UNLocationCode),
		DestinationUNLocode: scheduledomain.NormalizeUNLocode(routing.PlaceOfDelivery.UNLocationCode),
		TransitTimeDays:     routing.TransitTime,
	}

	if routing.PlaceOfReceipt.DateTime != nil {
		route.Departure = *routing.PlaceOfReceipt.DateTime
	}
	if routing.PlaceOfDelivery.DateTime != nil {
		route.Arrival = routing.PlaceOfDelivery.DateTime
	}

	// Ocean-leg identity and times take precedence over the envelope.
	for _, leg := range routing.Legs {
		if !strings.EqualFold(leg.ModeOfTransport, "VESSEL") {
			continue
		}
		if route.ServiceCode == "" {
			route.ServiceCode = strings.TrimSpace(leg.CarrierServiceCode)
			route.VoyageNumber = strings.TrimSpace(leg.CarrierVoyageNumber)
			route.VesselName = strings.TrimSpace(leg.VesselName)
			route.VesselIMO = strings.TrimSpace(leg.VesselIMONumber)
			if leg.Departure.DateTime != nil {
				route.Departure = *leg.Departure.DateTime
			}
		}
		if leg.Arrival.DateTime != nil {
			route.Arrival = leg.Arrival.DateTime
		}
	}

	return route
}
