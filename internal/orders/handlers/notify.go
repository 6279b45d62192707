package handlers

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"

	"fitness-pay-backend/internal/gateway"
	"fitness-pay-backend/internal/orders"
	"fitness-pay-backend/internal/signature"
)

const maxNotifyBody = 1 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type NotifyHandler struct {
	orderService *orders.Service
}

func NewNotifyHandler(s *orders.Service) *NotifyHandler {
	return &NotifyHandler{orderService: s}
}

// Handle answers every method with a plain-text acknowledgement token.
// Anything that goes wrong, including a panic, is answered with fail.
func (h *NotifyHandler) Handle(c echo.Context) (err error) {
	ctx := c.Request().Context()
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "panic in notify handler", "error", rec)
			err = c.String(http.StatusOK, gateway.AckFail)
		}
	}()

	params, perr := notifyParams(c)
	if perr != nil {
		slog.WarnContext(ctx, "notification rejected", "reason", "unreadable payload", "error", perr)
		return c.String(http.StatusOK, gateway.AckFail)
	}

	return c.String(http.StatusOK, h.orderService.HandleNotification(ctx, params))
}

// notifyParams flattens the notification payload: the query string for GET,
// the body otherwise. Only the first value of a repeated key is kept.
func notifyParams(c echo.Context) (signature.Params, error) {
	r := c.Request()
	if r.Method == http.MethodGet {
		return firstValues(c.QueryParams()), nil
	}

	r.Body = http.MaxBytesReader(c.Response(), r.Body, maxNotifyBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(echo.HeaderContentType))
	switch mediaType {
	case echo.MIMEApplicationJSON:
		return jsonParams(r)
	case echo.MIMEApplicationForm:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return firstValues(r.PostForm), nil
	case echo.MIMEMultipartForm:
		if err := r.ParseMultipartForm(maxNotifyBody); err != nil {
			return nil, err
		}
		return firstValues(r.MultipartForm.Value), nil
	default:
		return signature.Params{}, nil
	}
}

// jsonParams decodes a JSON object and stringifies its scalar members.
// Numbers keep their literal form; null and nested values are dropped.
func jsonParams(r *http.Request) (signature.Params, error) {
	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}

	params := make(signature.Params, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			params[k] = val
		case fmt.Stringer:
			// json.Number under UseNumber.
			params[k] = val.String()
		case bool:
			params[k] = strconv.FormatBool(val)
		}
	}
	return params, nil
}

// firstValues keeps only the first value of a repeated key.
func firstValues(values url.Values) signature.Params {
	params := make(signature.Params, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}
