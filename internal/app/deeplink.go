package app

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"mrtui/internal/geo"
)

// ParseDeepLink applies a share link such as "https://host/#t=slug/123".
// It reports true when the link names a task that is now being restored,
// in which case the caller must not pick a challenge itself.
//
//	t=<slug>/<task>            load that task, unassigned
//	p=<difficulty>/<lon>/<lat> bias challenge and task selection
//	c=rnd                      forget the remembered challenge
func (a *App) ParseDeepLink(link string) bool {
	values, ok := parseFragment(link)
	if !ok {
		return false
	}

	if t := values.Get("t"); t != "" {
		slug, id, found := strings.Cut(t, "/")
		if !found || slug == "" || id == "" {
			a.logger.Warn("deeplink.invalid", map[string]any{"link": link})
			return false
		}
		a.logger.Info("deeplink.task", map[string]any{"challenge": slug, "task": id})
		a.spawn(func(ctx context.Context) {
			a.selectChallenge(ctx, slug, false, fetchQuery{taskID: id})
		})
		return true
	}

	if p := values.Get("p"); p != "" {
		parts := strings.Split(p, "/")
		if len(parts) != 3 {
			a.logger.Warn("deeplink.invalid", map[string]any{"link": link})
			return false
		}
		difficulty, err1 := strconv.Atoi(parts[0])
		lon, err2 := strconv.ParseFloat(parts[1], 64)
		lat, err3 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil || err3 != nil || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			a.logger.Warn("deeplink.invalid", map[string]any{"link": link})
			return false
		}
		a.mu.Lock()
		if difficulty >= 1 && difficulty <= 3 {
			a.s.difficulty = difficulty
		}
		a.s.near = &geo.Near{Lon: lon, Lat: lat}
		a.mu.Unlock()
		a.logger.Info("deeplink.bias", map[string]any{"difficulty": difficulty, "lon": lon, "lat": lat})
		return false
	}

	if values.Get("c") == "rnd" {
		if err := a.store.ForgetChallenge(a.ctx); err != nil {
			a.logger.Warn("state.forget_failed", map[string]any{"error": err})
		}
		a.logger.Info("deeplink.random", nil)
	}
	return false
}

func parseFragment(link string) (url.Values, bool) {
	link = strings.TrimSpace(link)
	if i := strings.IndexByte(link, '#'); i >= 0 {
		link = link[i+1:]
	}
	link = strings.TrimPrefix(link, "/")
	if link == "" {
		return nil, false
	}
	values, err := url.ParseQuery(link)
	if err != nil {
		return nil, false
	}
	return values, true
}

// shareLinkLocked is the link that reopens the current task.
func (a *App) shareLinkLocked() string {
	if a.s.challenge == nil || a.s.task == nil {
		return ""
	}
	return a.cfg.Server + "/#t=" + a.s.challenge.Slug + "/" + a.s.task.ID
}
