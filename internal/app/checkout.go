package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/checkout-connector/internal/config"
	"github.com/samvad-hq/checkout-connector/internal/domain"
	"github.com/samvad-hq/checkout-connector/internal/logger"
	"github.com/samvad-hq/checkout-connector/internal/storage"
	"github.com/samvad-hq/checkout-connector/pkg/checkout"
	"github.com/samvad-hq/checkout-connector/pkg/digest"
	"github.com/samvad-hq/checkout-connector/pkg/httpclient"
	"github.com/samvad-hq/checkout-connector/pkg/publishers"
	"github.com/samvad-hq/checkout-connector/pkg/snippet"
)

// ErrUnknownReference is returned when an order reference has no stored location.
var ErrUnknownReference = errors.New("unknown order reference")

// EventPublisher publishes order events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Service is the checkout application runtime. It drives the connector for
// order operations, remembers order locations by reference and reports
// every successful operation to the configured publishers.
type Service struct {
	connector *checkout.Connector
	store     storage.Store
	events    EventPublisher
	closers   []func() error
	log       logger.Logger
}

// NewService builds the runtime from config.
func NewService(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	connector := checkout.NewConnector(
		httpclient.NewRestyClient(cfg.HTTPTimeout),
		digest.SHA256{},
		cfg.SharedSecret,
		checkout.WithBaseURL(cfg.CheckoutBaseURI),
		checkout.WithUserAgent(cfg.UserAgent),
		checkout.WithSuccessRange(cfg.SuccessStatusMin, cfg.SuccessStatusMax),
		checkout.WithLocationHeader(cfg.LocationHeader),
		checkout.WithFollowRedirects(cfg.FollowRedirects),
		checkout.WithLogger(log),
	)
	log.InfoObj("checkout connector configured", "connector_config", map[string]any{
		"base_uri":         cfg.CheckoutBaseURI,
		"timeout_seconds":  int(cfg.HTTPTimeout.Seconds()),
		"follow_redirects": cfg.FollowRedirects,
		"success_range":    fmt.Sprintf("%d-%d", cfg.SuccessStatusMin, cfg.SuccessStatusMax),
	})

	storeOpts := storage.Options{
		OrderTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"order_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	svc := newService(connector, store, nil, log)
	svc.closers = append(svc.closers, store.Close)

	if strings.TrimSpace(cfg.PublishersFile) == "" {
		log.InfoObj("no publishers file configured; order events disabled", "publishers_file", "")
		return svc, nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	svc.events = fanout
	svc.closers = append(svc.closers, fanout.Close)

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	return svc, nil
}

func newService(connector *checkout.Connector, store storage.Store, events EventPublisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		connector: connector,
		store:     store,
		events:    events,
		log:       log,
	}
}

// CreateOrder creates a checkout order from data and stores its location
// under ref when ref is non-empty.
func (s *Service) CreateOrder(ctx context.Context, ref string, data map[string]any) (*checkout.Order, error) {
	order := checkout.NewOrder("")
	if err := order.Create(ctx, s.connector, data); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if ref = strings.TrimSpace(ref); ref != "" && s.store != nil {
		if err := s.store.SaveLocation(ref, order.Location()); err != nil {
			return nil, fmt.Errorf("save order reference %q: %w", ref, err)
		}
	}

	s.log.InfoObj("checkout order created", "order", summarize(ref, order))
	s.publish(ctx, publishers.ActionCreated, ref, order)
	return order, nil
}

// FetchOrder loads the order identified by ref or, when it looks like a URL,
// by its location.
func (s *Service) FetchOrder(ctx context.Context, refOrLocation string) (*checkout.Order, error) {
	ref, location, err := s.resolve(refOrLocation)
	if err != nil {
		return nil, err
	}

	order := checkout.NewOrder(location)
	if err := order.Fetch(ctx, s.connector); err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}

	s.log.InfoObj("checkout order fetched", "order", summarize(ref, order))
	s.publish(ctx, publishers.ActionFetched, ref, order)
	return order, nil
}

// UpdateOrder posts data to the order identified by ref or location.
func (s *Service) UpdateOrder(ctx context.Context, refOrLocation string, data map[string]any) (*checkout.Order, error) {
	ref, location, err := s.resolve(refOrLocation)
	if err != nil {
		return nil, err
	}

	order := checkout.NewOrder(location)
	if err := order.Update(ctx, s.connector, data); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	s.log.InfoObj("checkout order updated", "order", summarize(ref, order))
	s.publish(ctx, publishers.ActionUpdated, ref, order)
	return order, nil
}

// Snippet parses the embed snippet carried by order.
func (s *Service) Snippet(order *checkout.Order) (snippet.Snippet, error) {
	if order == nil {
		return snippet.Snippet{}, snippet.ErrEmpty
	}
	return snippet.Parse(order.Snippet())
}

// Close releases storage and publisher resources.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Service) resolve(refOrLocation string) (ref, location string, err error) {
	in := strings.TrimSpace(refOrLocation)
	if in == "" {
		return "", "", fmt.Errorf("order reference or location is required")
	}
	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		return "", in, nil
	}
	if s.store == nil {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownReference, in)
	}
	loc, found, err := s.store.Location(in)
	if err != nil {
		return "", "", fmt.Errorf("lookup order reference %q: %w", in, err)
	}
	if !found {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownReference, in)
	}
	return in, loc, nil
}

// publish reports the event. Failures are logged and never returned.
func (s *Service) publish(ctx context.Context, action, ref string, order *checkout.Order) {
	if s.events == nil {
		return
	}
	evt := publishers.NewEvent(action, summarize(ref, order))
	if _, err := s.events.Publish(ctx, evt); err != nil {
		s.log.ErrorObj("order event publish failed", "publish_error", map[string]any{
			"action":   action,
			"order_id": evt.Order.ID,
			"error":    err.Error(),
		})
	}
}

func summarize(ref string, order *checkout.Order) domain.Order {
	return domain.Order{
		ID:        order.ID(),
		Reference: ref,
		Location:  order.Location(),
		Status:    order.Status(),
	}
}
