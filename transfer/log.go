package transfer

import (
	"context"

	"github.com/charmbracelet/log"
)

// logger returns the context logger, or the default one.
func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithPrefix("lfs")
}
