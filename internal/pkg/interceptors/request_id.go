package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors/constants"
)

// RequestIDServerInterceptor lifts x-request-id from incoming metadata into
// the context (generating one when absent), echoes it back in the response
// header and logs the call outcome.
func RequestIDServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		requestID := GetMetadataValue(ctx, constants.HeaderXRequestId)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		newCtx := context.WithValue(ctx, constants.ContextKeyRequestID, requestID)
		_ = grpc.SetHeader(newCtx, metadata.Pairs(constants.HeaderXRequestId, requestID))

		start := time.Now()
		resp, err := handler(newCtx, req)

		slog.DebugContext(newCtx, "grpc call",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// GetMetadataValue returns key from the context values, then from incoming
// and outgoing gRPC metadata, or "" when absent everywhere.
func GetMetadataValue(ctx context.Context, key string) string {
	if id, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && key == constants.HeaderXRequestId {
		return id
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}

	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}
