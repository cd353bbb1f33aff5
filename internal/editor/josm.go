package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRemoteControl means JOSM did not answer a remote control request with
// OK, usually because it is not running or remote control is disabled.
var ErrRemoteControl = errors.New("JOSM remote control did not respond")

const RemoteControlHint = "JOSM remote control did not respond. Do you have JOSM running with Remote Control enabled?"

type JOSM struct {
	http *http.Client
}

func NewJOSM(hc *http.Client) *JOSM {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &JOSM{http: hc}
}

// Load issues a remote control request and waits for JOSM's OK.
func (j *JOSM) Load(ctx context.Context, uri string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("josm request: %w", err)
	}
	resp, err := j.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteControl, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteControl, err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "OK") {
		return fmt.Errorf("%w: status %d", ErrRemoteControl, resp.StatusCode)
	}
	return nil
}
