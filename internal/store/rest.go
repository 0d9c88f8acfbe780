package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ufc-indexer/internal/adapter"
	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/logger"
)

const (
	restPath        = "/rest/v1/"
	defaultPageSize = 1000

	tableEvents   = "events"
	tableFighters = "fighters"
	tableFights   = "fights"

	// pgUniqueViolation is the SQLSTATE the REST gateway forwards on unique constraint failures
	pgUniqueViolation = "23505"
	// pgForeignKeyViolation is forwarded when a fight references a missing event or fighter
	pgForeignKeyViolation = "23503"
)

// RESTConfig holds the REST backend settings
type RESTConfig struct {
	// URL is the project base URL, without the /rest/v1 suffix
	URL string
	// APIKey is sent as the apikey header and, without Token, as the bearer credential
	APIKey string
	// Token overrides the bearer credential when set
	Token    string
	PageSize int
}

type restStore struct {
	client   adapter.HTTPClient
	json     adapter.JSON
	base     string
	apiKey   string
	bearer   string
	pageSize int
}

// NewRESTStore creates a store talking to a PostgREST-style gateway
func NewRESTStore(client adapter.HTTPClient, json adapter.JSON, cfg RESTConfig) Store {
	bearer := cfg.Token
	if bearer == "" {
		bearer = cfg.APIKey
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &restStore{
		client:   client,
		json:     json,
		base:     strings.TrimRight(cfg.URL, "/") + restPath,
		apiKey:   cfg.APIKey,
		bearer:   bearer,
		pageSize: pageSize,
	}
}

// restError is the error body PostgREST returns
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (s *restStore) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("select", "id")
	query.Set("limit", "1")

	_, err := s.do(ctx, http.MethodGet, tableEvents, query, nil, "")
	if err != nil {
		return fmt.Errorf("failed to ping store: %w", err)
	}
	return nil
}

func (s *restStore) ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error) {
	events, err := listAll[domain.Event](ctx, s, tableEvents, "id.asc", eventQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *restStore) InsertEvent(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	e := *event
	e.ID = 0

	var created []domain.Event
	if err := s.insert(ctx, tableEvents, e, &created); err != nil {
		return nil, fmt.Errorf("failed to insert event %q: %w", event.Name, err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to insert event %q: empty representation: %w", event.Name, domain.ErrStoreRejected)
	}
	return &created[0], nil
}

func (s *restStore) UpdateEvent(ctx context.Context, id int64, patch EventPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	body := make(map[string]interface{})
	if patch.Date != nil {
		body["date"] = patch.Date.String()
	}
	if patch.Venue != nil {
		body["venue"] = *patch.Venue
	}
	if patch.Location != nil {
		body["location"] = *patch.Location
	}
	if patch.Status != nil {
		body["status"] = *patch.Status
	}

	if err := s.update(ctx, tableEvents, id, body); err != nil {
		return fmt.Errorf("failed to update event %d: %w", id, err)
	}
	return nil
}

func (s *restStore) DeleteEvents(ctx context.Context, filter EventFilter) error {
	if filter.IsEmpty() {
		return ErrEmptyFilter
	}

	// fights reference events, so they go first
	events, err := s.ListEvents(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	fights := url.Values{}
	fights.Set("event_id", "in.("+joinIDs(ids)+")")
	if _, err := s.do(ctx, http.MethodDelete, tableFights, fights, nil, ""); err != nil {
		return fmt.Errorf("failed to delete fights of events: %w", err)
	}

	query := url.Values{}
	query.Set("id", "in.("+joinIDs(ids)+")")
	if _, err := s.do(ctx, http.MethodDelete, tableEvents, query, nil, ""); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}

	return nil
}

func (s *restStore) ListFighters(ctx context.Context, filter FighterFilter) ([]domain.Fighter, error) {
	query := url.Values{}
	if len(filter.Names) > 0 {
		query.Set("name", "in.("+joinQuoted(filter.Names)+")")
	}

	fighters, err := listAll[domain.Fighter](ctx, s, tableFighters, "id.asc", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fighters: %w", err)
	}
	return fighters, nil
}

func (s *restStore) InsertFighter(ctx context.Context, fighter *domain.Fighter) (*domain.Fighter, error) {
	f := *fighter
	f.ID = 0

	var created []domain.Fighter
	if err := s.insert(ctx, tableFighters, f, &created); err != nil {
		return nil, fmt.Errorf("failed to insert fighter %q: %w", fighter.Name, err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to insert fighter %q: empty representation: %w", fighter.Name, domain.ErrStoreRejected)
	}
	return &created[0], nil
}

func (s *restStore) UpdateFighter(ctx context.Context, id int64, patch FighterPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	body := make(map[string]interface{})
	if patch.WeightClass != nil {
		body["weight_class"] = *patch.WeightClass
	}
	if patch.Record != nil {
		body["record"] = patch.Record
	}

	if err := s.update(ctx, tableFighters, id, body); err != nil {
		return fmt.Errorf("failed to update fighter %d: %w", id, err)
	}
	return nil
}

func (s *restStore) ListFights(ctx context.Context, filter FightFilter) ([]domain.Fight, error) {
	query := url.Values{}
	if filter.EventID != 0 {
		query.Set("event_id", "eq."+strconv.FormatInt(filter.EventID, 10))
	}

	fights, err := listAll[domain.Fight](ctx, s, tableFights, "event_id.asc,fight_order.asc,id.asc", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fights: %w", err)
	}
	return fights, nil
}

func (s *restStore) InsertFight(ctx context.Context, fight *domain.Fight) (*domain.Fight, error) {
	f := *fight
	f.ID = 0

	var created []domain.Fight
	if err := s.insert(ctx, tableFights, f, &created); err != nil {
		return nil, fmt.Errorf("failed to insert fight %d of event %d: %w", fight.FightOrder, fight.EventID, err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("failed to insert fight %d of event %d: empty representation: %w",
			fight.FightOrder, fight.EventID, domain.ErrStoreRejected)
	}
	return &created[0], nil
}

func (s *restStore) DeleteFights(ctx context.Context, filter FightFilter) error {
	if filter.IsEmpty() {
		return ErrEmptyFilter
	}

	query := url.Values{}
	query.Set("event_id", "eq."+strconv.FormatInt(filter.EventID, 10))
	if _, err := s.do(ctx, http.MethodDelete, tableFights, query, nil, ""); err != nil {
		return fmt.Errorf("failed to delete fights of event %d: %w", filter.EventID, err)
	}
	return nil
}

// listAll pages through a table in the given order
func listAll[T any](ctx context.Context, s *restStore, table, order string, query url.Values) ([]T, error) {
	query.Set("select", "*")
	query.Set("order", order)
	query.Set("limit", strconv.Itoa(s.pageSize))

	var rows []T
	for offset := 0; ; offset += s.pageSize {
		query.Set("offset", strconv.Itoa(offset))

		resp, err := s.do(ctx, http.MethodGet, table, query, nil, "")
		if err != nil {
			return nil, err
		}

		var page []T
		if err := s.json.Unmarshal(resp.Body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode %s page: %w: %w", table, domain.ErrStoreRejected, err)
		}
		rows = append(rows, page...)

		if len(page) < s.pageSize {
			return rows, nil
		}
	}
}

func (s *restStore) insert(ctx context.Context, table string, row interface{}, out interface{}) error {
	body, err := s.json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, table, nil, body, "return=representation")
	if err != nil {
		return err
	}

	if err := s.json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode representation: %w: %w", domain.ErrStoreRejected, err)
	}
	return nil
}

func (s *restStore) update(ctx context.Context, table string, id int64, fields map[string]interface{}) error {
	body, err := s.json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	query := url.Values{}
	query.Set("id", "eq."+strconv.FormatInt(id, 10))
	_, err = s.do(ctx, http.MethodPatch, table, query, body, "return=minimal")
	return err
}

// do sends one request and maps failures onto the store error taxonomy
func (s *restStore) do(ctx context.Context, method, table string, query url.Values, body []byte, prefer string) (*adapter.Response, error) {
	target := s.base + table
	if len(query) > 0 {
		// PostgREST reads '+' literally inside operator values
		target += "?" + strings.ReplaceAll(query.Encode(), "+", "%20")
	}

	header := http.Header{}
	header.Set("apikey", s.apiKey)
	header.Set("Authorization", "Bearer "+s.bearer)
	header.Set("Accept", "application/json")
	header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		header.Set("Prefer", prefer)
	}

	resp, err := s.client.Do(ctx, adapter.Request{
		Method: method,
		URL:    target,
		Header: header,
		Body:   body,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w: %w", method, table, domain.ErrStoreTransient, ctx.Err())
		}
		return nil, fmt.Errorf("%s %s: %w: %w", method, table, domain.ErrStoreTransient, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	err = s.statusError(resp)
	logger.DebugCtx(ctx, "Store request failed",
		zap.String("method", method),
		zap.String("table", table),
		zap.Int("status", resp.StatusCode),
		zap.String("requestID", header.Get("X-Request-Id")),
		zap.Error(err),
	)

	return nil, fmt.Errorf("%s %s: %w", method, table, err)
}

// statusError classifies a non-2xx answer
func (s *restStore) statusError(resp *adapter.Response) error {
	var body restError
	_ = s.json.Unmarshal(resp.Body, &body)

	detail := body.Message
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		kind = domain.ErrStoreUnauthorized
	case resp.StatusCode == http.StatusConflict, body.Code == pgUniqueViolation, body.Code == pgForeignKeyViolation:
		kind = domain.ErrStoreInvariantViolation
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		kind = domain.ErrStoreTransient
	default:
		kind = domain.ErrStoreRejected
	}

	return &StatusError{Status: resp.StatusCode, Code: body.Code, Message: detail, Kind: kind}
}

// StatusError is a non-2xx store answer
type StatusError struct {
	Status  int
	Code    string
	Message string
	Kind    error
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("status %d (%s): %s: %v", e.Status, e.Code, e.Message, e.Kind)
	}
	return fmt.Sprintf("status %d: %s: %v", e.Status, e.Message, e.Kind)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}

// eventQuery renders an event filter as PostgREST predicates
func eventQuery(filter EventFilter) url.Values {
	query := url.Values{}
	if len(filter.IDs) > 0 {
		query.Set("id", "in.("+joinIDs(filter.IDs)+")")
	}
	if filter.Name != "" {
		query.Set("name", "eq."+filter.Name)
	}
	if filter.MissingDate {
		query.Set("or", "(date.is.null,date.lte."+domain.SentinelDate.String()+")")
	}
	return query
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

// joinQuoted quotes list members so commas and parentheses in names survive
func joinQuoted(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		parts = append(parts, `"`+v+`"`)
	}
	return strings.Join(parts, ",")
}
