package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"bottle-tracking-backend/config"
	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/parse"
	"bottle-tracking-backend/internal/store"
)

// Dispatcher receives bottles whose owner changed.
type Dispatcher interface {
	Dispatch(ctx context.Context, bottleIndex int64)
}

// Service polls the ownership ledger and applies transfers through the store.
type Service struct {
	cfg        *config.LedgerConfig
	store      store.Store
	dispatcher Dispatcher
	client     *http.Client
	logger     *zap.Logger
	since      time.Time // newest observedAt applied so far
}

// NewService creates and initializes a new ledger poller.
func NewService(cfg *config.LedgerConfig, s store.Store, dispatcher Dispatcher, logger *zap.Logger) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn("invalid ledger proxy URL; polling without proxy", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:        cfg,
		store:      s,
		dispatcher: dispatcher,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		logger: logger,
	}
}

// Run starts the polling loop and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("ledger poller is disabled")
		return
	}
	s.logger.Info("starting ledger poller", zap.Duration("interval", s.cfg.Interval))

	s.PollOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ledger poller shutting down")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// PollOnce fetches every new ledger event, applies the transfers and
// dispatches the bottles whose owner changed.
func (s *Service) PollOnce(ctx context.Context) {
	var events []Event
	total := 1
	pageSize := s.cfg.PageSize
	var fetchErr error
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			s.logger.Error("fetching ledger page failed", zap.Int("page", page), zap.Error(err))
			fetchErr = err
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		events = append(events, resp.Data.Items...)
	}

	// If the fetch failed and resulted in zero events, abort without touching ownership state.
	if fetchErr != nil && len(events) == 0 {
		s.logger.Warn("ledger poll aborted: fetch failed with no events retrieved")
		return
	}

	transfers, newest := s.toTransfers(events)
	if len(transfers) == 0 {
		return
	}

	changed, err := s.store.ApplyTransfers(ctx, transfers)
	if err != nil {
		s.logger.Error("applying ledger transfers failed", zap.Int("transfers", len(transfers)), zap.Error(err))
		return
	}
	// A partial fetch may have missed older events on later pages; keep the
	// cursor so the next poll sees them again.
	if fetchErr == nil && newest.After(s.since) {
		s.since = newest
	}
	s.logger.Info("ledger poll applied",
		zap.Int("events", len(events)),
		zap.Int("transfers", len(transfers)),
		zap.Int("changed", len(changed)))

	if s.dispatcher == nil {
		return
	}
	for _, idx := range changed {
		s.dispatcher.Dispatch(ctx, idx)
	}
}

// toTransfers validates events, dropping malformed ones and those not newer than the cursor.
func (s *Service) toTransfers(events []Event) ([]store.Transfer, time.Time) {
	var newest time.Time
	transfers := make([]store.Transfer, 0, len(events))
	for _, ev := range events {
		t, err := toTransfer(ev)
		if err != nil {
			s.logger.Warn("skipping malformed ledger event", zap.ByteString("bottle_index", ev.BottleIndex), zap.Error(err))
			continue
		}
		if !s.since.IsZero() && !t.At.After(s.since) {
			continue
		}
		if t.At.After(newest) {
			newest = t.At
		}
		transfers = append(transfers, t)
	}
	return transfers, newest
}

func toTransfer(ev Event) (store.Transfer, error) {
	idx, err := parse.JSONBottleIndex(ev.BottleIndex)
	if err != nil {
		return store.Transfer{}, err
	}
	if err := model.Validate(&ev); err != nil {
		return store.Transfer{}, err
	}
	at, err := time.Parse(time.RFC3339, ev.ObservedAt)
	if err != nil {
		return store.Transfer{}, err
	}
	// The store rejects a whole batch on one invalid owner, so check each record here.
	owner := model.Owner{BottleIndex: idx, Account: ev.Account, Type: ev.Type, CreatedAt: at}
	if err := model.Validate(&owner); err != nil {
		return store.Transfer{}, err
	}
	return store.Transfer{BottleIndex: idx, Account: ev.Account, Type: ev.Type, At: at.UTC()}, nil
}

func (s *Service) fetchPage(ctx context.Context, page int) (*ApiResponse, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(s.cfg.PageSize))
	if !s.since.IsZero() {
		q.Set("since", s.since.Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var apiResp ApiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Code != 0 {
		return nil, fmt.Errorf("ledger error %d: %s", apiResp.Code, apiResp.Message)
	}
	return &apiResp, nil
}
