// Package mid contains the set of middleware functions applied to every
// handler bound through the web package.
package mid

import (
	"net/http"

	"github.com/ahrav/handyhire/pkg/web"
)

type httpStatus interface {
	HTTPStatus() int
}

// isError reports the error carried by a handler response, if any.
func isError(e web.Encoder) error {
	err, isError := e.(error)
	if isError {
		return err
	}
	return nil
}

// statusOf derives the status code Respond will write for resp.
func statusOf(resp web.Encoder) int {
	switch v := resp.(type) {
	case nil:
		return http.StatusNoContent
	case httpStatus:
		return v.HTTPStatus()
	case error:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
