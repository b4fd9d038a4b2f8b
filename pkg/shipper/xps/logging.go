package xps

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// payloadLogger writes quote payloads when the merchant asked for it.
// It never changes control flow.
type payloadLogger struct {
	logger    *otelzap.Logger
	requests  bool
	responses bool
}

func (p payloadLogger) request(ctx context.Context, requestID string, req *QuoteRequest) {
	if !p.requests {
		return
	}
	p.logger.Ctx(ctx).Info("XPS quote request",
		zap.String("request_id", requestID),
		zap.String("carrier_code", req.CarrierCode),
		zap.Any("payload", req),
	)
}

func (p payloadLogger) response(ctx context.Context, requestID, carrierCode string, resp *QuoteResponse) {
	if !p.responses {
		return
	}
	p.logger.Ctx(ctx).Info("XPS quote response",
		zap.String("request_id", requestID),
		zap.String("carrier_code", carrierCode),
		zap.Any("payload", resp),
	)
}
