package gateway

import (
	"net/url"

	"fitness-pay-backend/internal/signature"
)

// Wire parameter names used by the gateway.
const (
	ParamMerchantID  = "pid"
	ParamPayType     = "type"
	ParamOutTradeNo  = "out_trade_no"
	ParamNotifyURL   = "notify_url"
	ParamReturnURL   = "return_url"
	ParamProductName = "name"
	ParamMoney       = "money"
	ParamSiteName    = "sitename"
	ParamTradeNo     = "trade_no"
	ParamTradeStatus = "trade_status"
)

// Acknowledgement tokens the gateway expects from the notify endpoint.
const (
	AckSuccess = "success"
	AckFail    = "fail"
)

const submitPath = "/submit.php"

// SuccessStatuses are the trade_status values that mean the order is paid.
var SuccessStatuses = map[string]struct{}{
	"TRADE_SUCCESS": {},
	"SUCCESS":       {},
}

func IsPaid(tradeStatus string) bool {
	_, ok := SuccessStatuses[tradeStatus]
	return ok
}

type Client struct {
	baseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL}
}

// SubmitURL returns the redirect URL that starts a payment. Every parameter
// is sent, including empty ones, followed by sign and sign_type=MD5.
func (c *Client) SubmitURL(params signature.Params, sign string) string {
	q := make(url.Values, len(params)+2)
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set(signature.KeySign, sign)
	q.Set(signature.KeySignType, signature.SignTypeMD5)
	return c.baseURL + submitPath + "?" + q.Encode()
}
