package mid

import (
	"context"
	"errors"
	"net/http"

	"github.com/ahrav/handyhire/internal/api/errs"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/web"
)

// Errors handles errors coming out of the call chain. Errors that are not
// *errs.Error are logged and hidden behind a generic internal error.
func Errors(log *logger.Logger) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			resp := next(ctx, r)
			err := isError(resp)
			if err == nil {
				return resp
			}

			var appErr *errs.Error
			if !errors.As(err, &appErr) {
				appErr = errs.Newf(errs.Internal, "Internal Server Error")
			}

			log.Error(ctx, "handled error during request",
				"err", err,
				"code", appErr.Code.String(),
				"source_err_file", appErr.FileName,
				"source_err_func", appErr.FuncName)

			if appErr.Code == errs.Internal {
				appErr = errs.Newf(errs.Internal, "Internal Server Error")
			}

			return appErr
		}

		return h
	}

	return m
}
