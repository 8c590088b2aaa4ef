package http

import (
	"net/http"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcError writes the HTTP equivalent of a gRPC status.
func grpcError(w http.ResponseWriter, r *http.Request, l *zap.Logger, err error) {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.InvalidArgument:
		httpapi.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", st.Message(), false)
	case codes.NotFound:
		httpapi.Error(w, http.StatusNotFound, "NOT_FOUND", st.Message(), false)
	case codes.FailedPrecondition, codes.AlreadyExists:
		httpapi.Error(w, http.StatusConflict, "CONFLICT", st.Message(), false)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		httpapi.Error(w, http.StatusServiceUnavailable, "DEPENDENCY_FAILURE", st.Message(), true)
	default:
		logger.Error(r.Context(), l, "upstream call failed", zap.String("path", r.URL.Path), zap.Error(err))
		httpapi.Error(w, http.StatusInternalServerError, "INTERNAL", "internal server error", false)
	}
}
