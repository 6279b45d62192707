package entities

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PayType string

const (
	PayTypeWxpay  PayType = "wxpay"
	PayTypeAlipay PayType = "alipay"
	PayTypeQQpay  PayType = "qqpay"
)

// ParsePayType returns the pay type for s, or wxpay for anything unknown.
func ParsePayType(s string) PayType {
	switch PayType(s) {
	case PayTypeWxpay, PayTypeAlipay, PayTypeQQpay:
		return PayType(s)
	default:
		return PayTypeWxpay
	}
}

type OrderStatus string

const (
	StatusPending OrderStatus = "pending"
	StatusPaid    OrderStatus = "paid"
)

type Order struct {
	OrderNo   string            `json:"order_no"`
	Amount    decimal.Decimal   `json:"amount"`
	PayType   PayType           `json:"pay_type"`
	Status    OrderStatus       `json:"status"`
	PaidAt    *time.Time        `json:"paid_at"`
	TradeNo   string            `json:"trade_no,omitempty"`
	RawNotify map[string]string `json:"raw_notify,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderPatch is the write applied by a verified paid notification.
// PaidAt only takes effect while the stored paid_at is still null.
type OrderPatch struct {
	Status    OrderStatus
	PaidAt    time.Time
	TradeNo   string
	RawNotify map[string]string
}

// Apply mutates o in place following the store semantics.
func (p OrderPatch) Apply(o *Order) {
	o.Status = p.Status
	if o.PaidAt == nil {
		paidAt := p.PaidAt
		o.PaidAt = &paidAt
	}
	o.TradeNo = p.TradeNo
	o.RawNotify = p.RawNotify
}

// StatusView is the public projection returned by the status endpoint.
// Amount is emitted as a JSON number with two decimals.
type StatusView struct {
	OrderNo string      `json:"order_no"`
	Status  OrderStatus `json:"status"`
	Amount  json.Number `json:"amount"`
	PaidAt  *time.Time  `json:"paid_at"`
}

func (o *Order) View() StatusView {
	return StatusView{
		OrderNo: o.OrderNo,
		Status:  o.Status,
		Amount:  json.Number(o.Amount.StringFixed(2)),
		PaidAt:  o.PaidAt,
	}
}
