package udlserver

import (
	"errors"

	"github.com/shuckc/pytexalarm/internal/metrics"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrListen       = errors.New("listen")
	ErrAccept       = errors.New("accept")
	ErrConnRead     = errors.New("conn_read")
	ErrConnWrite    = errors.New("conn_write")
	ErrMemProto     = errors.New("mem_proto")
	ErrContext      = errors.New("context_cancelled")
)

// mapErrToMetric maps wrapped sentinel errors to metrics labels.
func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrConnRead):
		return metrics.ErrTransportRead
	case errors.Is(err, ErrConnWrite):
		return metrics.ErrTransportWrite
	case errors.Is(err, ErrAccept), errors.Is(err, ErrListen):
		return metrics.ErrTransportRead
	case errors.Is(err, ErrMemProto):
		return metrics.ErrDecode
	case errors.Is(err, ErrContext):
		return "context"
	default:
		return "other"
	}
}
