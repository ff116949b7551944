package tools

import (
	"context"
	"errors"
	"strconv"

	"synapse/internal/notify"
)

var errNoSender = errors.New("push sender not configured")

type notifyCustomer struct {
	sender       notify.Sender
	defaultToken string
}

func (t *notifyCustomer) Definition() Definition {
	return Definition{
		Name:   "notify_customer",
		Desc:   "Push a notification to the customer.",
		Schema: map[string]string{"fcm_token": "str", "message": "str", "voucher": "bool", "title": "str"},
	}
}

func (t *notifyCustomer) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	if t.sender == nil {
		return nil, errNoSender
	}
	token := paramString(params, "fcm_token")
	if token == "" {
		token = t.defaultToken
	}
	title := paramString(params, "title")
	if title == "" {
		title = "Order Update"
	}

	res := t.sender.Send(ctx, token, title, paramString(params, "message"),
		map[string]string{"voucher": strconv.FormatBool(paramBool(params, "voucher"))})
	return resultPayload(res), nil
}

type notifyPassengerAndDriver struct {
	sender           notify.Sender
	defaultDriver    string
	defaultPassenger string
}

func (t *notifyPassengerAndDriver) Definition() Definition {
	return Definition{
		Name:   "notify_passenger_and_driver",
		Desc:   "Push a route update to both driver and passenger.",
		Schema: map[string]string{"driver_token": "str", "passenger_token": "str", "message": "str"},
	}
}

func (t *notifyPassengerAndDriver) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	if t.sender == nil {
		return nil, errNoSender
	}
	message := paramString(params, "message")

	driverToken := paramString(params, "driver_token")
	if driverToken == "" {
		driverToken = t.defaultDriver
	}
	passengerToken := paramString(params, "passenger_token")
	if passengerToken == "" {
		passengerToken = t.defaultPassenger
	}

	d := t.sender.Send(ctx, driverToken, "Route Update", message, nil)
	p := t.sender.Send(ctx, passengerToken, "Route Update", message, nil)

	out := map[string]any{
		"driverDelivered":    d.Delivered,
		"passengerDelivered": p.Delivered,
	}
	if code := firstErrorCode(d, p); code != "" {
		out["errorCode"] = code
	}
	return out, nil
}

type notifyResolution struct {
	sender notify.Sender
}

func (t *notifyResolution) Definition() Definition {
	return Definition{
		Name:   "notify_resolution",
		Desc:   "Send the final resolution to driver and customer.",
		Schema: map[string]string{"driver_token": "str", "customer_token": "str", "message": "str"},
	}
}

func (t *notifyResolution) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	if t.sender == nil {
		return nil, errNoSender
	}
	message := paramString(params, "message")
	d := t.sender.Send(ctx, paramString(params, "driver_token"), "Dispute Resolution", message, nil)
	c := t.sender.Send(ctx, paramString(params, "customer_token"), "Dispute Resolution", message, nil)

	out := map[string]any{
		"driver_notified":   d.Delivered,
		"customer_notified": c.Delivered,
	}
	if code := firstErrorCode(d, c); code != "" {
		out["errorCode"] = code
	}
	return out, nil
}

func resultPayload(res notify.Result) map[string]any {
	out := map[string]any{"delivered": res.Delivered}
	if res.DryRun {
		out["dryRun"] = true
	}
	if res.Reason != "" {
		out["reason"] = res.Reason
	}
	if res.ErrorCode != "" {
		out["errorCode"] = res.ErrorCode
	}
	if res.Error != "" {
		out["error"] = res.Error
	}
	return out
}

func firstErrorCode(results ...notify.Result) string {
	for _, r := range results {
		if r.ErrorCode != "" {
			return r.ErrorCode
		}
	}
	return ""
}
