package devtools

import (
	"context"
	"net/http"
)

// Server is a local stand-in for the MapRoulette API.
type Server interface {
	Handler() http.Handler
	Start(addr string) (baseURL string, shutdown func(context.Context) error, err error)
	Updates() []Update
}

var _ Server = (*Backend)(nil)
