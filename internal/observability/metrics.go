package observability

// Metric names exported by the checkout service.
const (
	// MUsecaseRequests counts use case calls by use_case and outcome (OK, SIGNATURE_INVALID, ...).
	MUsecaseRequests MetricKey = "usecase_requests_total"
	MUsecaseDuration MetricKey = "usecase_duration_seconds"

	// MHTTPRequests counts requests by method, route pattern and status.
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"

	// MExternalRequests counts payment gateway calls by peer and endpoint (orders, refunds).
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"

	// MSideEffects counts notification deliveries such as notify.invoice by effect and outcome.
	MSideEffects MetricKey = "side_effects_total"
)
