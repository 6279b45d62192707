package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"fitness-pay-backend/internal/config"
	"fitness-pay-backend/internal/gateway"
	"fitness-pay-backend/internal/orders/entities"
	"fitness-pay-backend/internal/orders/repository"
	"fitness-pay-backend/internal/signature"
)

const (
	NotifyPath    = "/api/pay/notify"
	orderNoPrefix = "FP"
)

type Service struct {
	cfg     *config.Config
	repo    repository.Order
	signer  *signature.Engine
	gateway *gateway.Client
	locker  Locker
	now     func() time.Time
	random  io.Reader
}

type Option func(*Service)

func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// NewOrderService wires the lifecycle controller. repo may be nil when the
// store is not configured; every operation needing it then reports
// ErrNotConfigured.
func NewOrderService(cfg *config.Config, repo repository.Order, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		repo:    repo,
		signer:  signature.NewEngine(cfg.SecretKey, cfg.SignScheme),
		gateway: gateway.NewClient(cfg.GatewayBase),
		locker:  NoopLocker{},
		now:     time.Now,
		random:  rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateOrderRequest struct {
	PayType string
	// Origin is the caller's Origin header, used when no frontend URL is configured.
	Origin string
	// RequestBaseURL is scheme://host of the incoming request, used when no
	// public base URL is configured.
	RequestBaseURL string
}

type CreateOrderResult struct {
	OrderNo string `json:"order_no"`
	PayURL  string `json:"pay_url"`
}

// CreateOrder persists a pending order and returns the signed gateway
// redirect URL for it. The URL is only returned once the insert succeeded.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error) {
	if !s.cfg.Configured() || s.repo == nil {
		return CreateOrderResult{}, ErrNotConfigured
	}

	payType := entities.ParsePayType(req.PayType)
	now := s.now()
	orderNo, err := s.newOrderNo(now)
	if err != nil {
		return CreateOrderResult{}, err
	}

	notifyBase := s.cfg.BaseURL
	if notifyBase == "" {
		notifyBase = req.RequestBaseURL
	}
	returnBase := s.cfg.FrontendURL
	if returnBase == "" {
		returnBase = req.Origin
	}
	var returnURL string
	if returnBase != "" {
		returnURL = returnBase + "?order_no=" + orderNo
	}

	params := signature.Params{
		gateway.ParamMerchantID:  s.cfg.MerchantID,
		gateway.ParamPayType:     string(payType),
		gateway.ParamOutTradeNo:  orderNo,
		gateway.ParamNotifyURL:   notifyBase + NotifyPath,
		gateway.ParamReturnURL:   returnURL,
		gateway.ParamProductName: s.cfg.ProductName,
		gateway.ParamMoney:       s.cfg.PriceString(),
		gateway.ParamSiteName:    s.cfg.SiteName,
	}
	payURL := s.gateway.SubmitURL(params, s.signer.Sign(params))

	order := &entities.Order{
		OrderNo:   orderNo,
		Amount:    s.cfg.Price,
		PayType:   payType,
		Status:    entities.StatusPending,
		CreatedAt: now.UTC(),
	}
	if err := s.repo.Insert(ctx, order); err != nil {
		return CreateOrderResult{}, fmt.Errorf("%w: insert %s: %v", ErrPersistence, orderNo, err)
	}

	slog.InfoContext(ctx, "order created", "order_no", orderNo, "pay_type", payType, "amount", order.Amount.StringFixed(2))
	return CreateOrderResult{OrderNo: orderNo, PayURL: payURL}, nil
}

// GetOrderStatus looks an order up by number. No ownership check is made.
func (s *Service) GetOrderStatus(ctx context.Context, orderNo string) (entities.StatusView, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return entities.StatusView{}, ErrInvalidOrderNo
	}
	if s.repo == nil {
		return entities.StatusView{}, ErrNotConfigured
	}

	order, err := s.repo.FindByOrderNo(ctx, orderNo)
	if errors.Is(err, repository.ErrNotFound) {
		return entities.StatusView{}, ErrOrderNotFound
	}
	if err != nil {
		return entities.StatusView{}, fmt.Errorf("%w: find %s: %v", ErrPersistence, orderNo, err)
	}
	return order.View(), nil
}

// HandleNotification verifies a gateway notification and applies it. It
// always returns one of the two acknowledgement tokens; the reason for a
// rejection is only logged.
func (s *Service) HandleNotification(ctx context.Context, params signature.Params) string {
	if !s.cfg.Configured() || s.repo == nil {
		slog.WarnContext(ctx, "notification rejected", "reason", "not configured")
		return gateway.AckFail
	}

	if params[gateway.ParamMerchantID] != s.cfg.MerchantID {
		slog.WarnContext(ctx, "notification rejected", "reason", "merchant mismatch", "pid", params[gateway.ParamMerchantID])
		return gateway.AckFail
	}

	scheme, ok := s.signer.Verify(params, params[signature.KeySign])
	if !ok {
		slog.WarnContext(ctx, "notification rejected", "reason", "bad signature", "out_trade_no", params[gateway.ParamOutTradeNo])
		return gateway.AckFail
	}

	orderNo := params[gateway.ParamOutTradeNo]
	if orderNo == "" {
		slog.WarnContext(ctx, "notification rejected", "reason", "missing out_trade_no")
		return gateway.AckFail
	}

	tradeStatus := params[gateway.ParamTradeStatus]
	if !gateway.IsPaid(tradeStatus) {
		slog.InfoContext(ctx, "notification acknowledged without update", "order_no", orderNo, "trade_status", tradeStatus)
		return gateway.AckSuccess
	}

	unlock, err := s.locker.Lock(ctx, orderNo)
	if err != nil {
		slog.ErrorContext(ctx, "failed to lock order", "order_no", orderNo, "error", err)
		return gateway.AckFail
	}
	defer unlock()

	patch := entities.OrderPatch{
		Status:    entities.StatusPaid,
		PaidAt:    s.now().UTC(),
		TradeNo:   params[gateway.ParamTradeNo],
		RawNotify: maps.Clone(map[string]string(params)),
	}
	err = s.repo.UpdateByOrderNo(ctx, orderNo, patch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// Verified but unknown here; still acknowledged.
		slog.WarnContext(ctx, "paid notification for unknown order", "order_no", orderNo)
	case err != nil:
		slog.ErrorContext(ctx, "failed to mark order paid", "order_no", orderNo, "error", err)
		return gateway.AckFail
	default:
		slog.InfoContext(ctx, "order paid", "order_no", orderNo, "trade_no", patch.TradeNo, "scheme", scheme.String())
	}
	return gateway.AckSuccess
}

// newOrderNo returns FP + unix millis + 3 random bytes as uppercase hex.
// Collisions are not checked beyond the store's primary key.
func (s *Service) newOrderNo(now time.Time) (string, error) {
	var suffix [3]byte
	if _, err := io.ReadFull(s.random, suffix[:]); err != nil {
		return "", fmt.Errorf("generate order_no: %w", err)
	}
	return orderNoPrefix + strconv.FormatInt(now.UnixMilli(), 10) + strings.ToUpper(hex.EncodeToString(suffix[:])), nil
}
