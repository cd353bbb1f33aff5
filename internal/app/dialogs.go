package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"mrtui/internal/remote"
	"mrtui/internal/ui"

	"github.com/dustin/go-humanize"
)

func (a *App) showWelcome() {
	a.view.SetScreen(ui.ScreenWelcome)
	a.view.ShowDialog(ui.Dialog{
		ID:    "welcome",
		Title: "Welcome to MapRoulette",
		Body: msgWelcome + "\n\nSign in on the website, then start mrtui with the session cookie " +
			"(--session or MRTUI_SESSION) and press Retry.",
		Actions: []ui.DialogAction{
			{Label: "Sign in", Handler: func() {
				if err := a.browser.Open(a.cfg.Server + "/signin"); err != nil {
					a.logger.Warn("signin.browser_failed", map[string]any{"error": err})
					a.notify(ui.NotifyWarning, "Open "+a.cfg.Server+"/signin in your browser to sign in.")
				}
			}},
			{Label: "Retry", Handler: a.SignIn},
		},
	})
}

func (a *App) showIntro(ch remote.Challenge) {
	body := strings.TrimSpace(ch.Blurb)
	if body == "" {
		body = strings.TrimSpace(ch.Description)
	}
	if body == "" {
		body = "Let's fix some map errors."
	}
	a.view.ShowDialog(ui.Dialog{
		ID:       "intro",
		Title:    ch.Title,
		Body:     body,
		Markdown: true,
		Actions: []ui.DialogAction{
			{Label: "Let's go!"},
			{Label: "More help", Handler: a.PresentHelp},
			{Label: "Pick another challenge", Handler: a.ListChallenges},
		},
	})
}

// ListChallenges offers the active challenges, easiest first.
func (a *App) ListChallenges() {
	a.spawn(func(ctx context.Context) {
		a.view.SetBusy(true, "Loading challenges")
		all, err := a.remote.Challenges(ctx)
		a.view.SetBusy(false, "")
		if err != nil {
			a.fail("challenge.list", err)
			return
		}
		active := make([]remote.Challenge, 0, len(all))
		for _, ch := range all {
			if ch.Active {
				active = append(active, ch)
			}
		}
		if len(active) == 0 {
			a.notify(ui.NotifyWarning, msgNoChallenges)
			return
		}
		sort.SliceStable(active, func(i, j int) bool {
			if active[i].Difficulty != active[j].Difficulty {
				return active[i].Difficulty < active[j].Difficulty
			}
			return strings.ToLower(active[i].Title) < strings.ToLower(active[j].Title)
		})

		actions := make([]ui.DialogAction, 0, len(active)+1)
		for _, ch := range active {
			slug := ch.Slug
			actions = append(actions, ui.DialogAction{
				Label:   fmt.Sprintf("%s (%s)", ch.Title, difficultyName(ch.Difficulty)),
				Handler: func() { a.PickChallenge(slug) },
			})
		}
		actions = append(actions, ui.DialogAction{Label: "Nevermind"})
		a.view.ShowDialog(ui.Dialog{
			ID:      "challenges",
			Title:   "Pick a challenge",
			Body:    "These challenges need your help:",
			Actions: actions,
		})
	})
}

// PickChallenge switches to slug without the intro dialog and fetches a
// fresh task from it.
func (a *App) PickChallenge(slug string) {
	a.logger.Info("challenge.picked", map[string]any{"challenge": slug})
	a.spawn(func(ctx context.Context) {
		a.selectChallenge(ctx, slug, false, fetchQuery{assign: true})
	})
}

func (a *App) PresentHelp() {
	a.mu.Lock()
	var ch remote.Challenge
	if a.s.challenge != nil {
		ch = *a.s.challenge
	}
	a.mu.Unlock()

	body := strings.TrimSpace(ch.Help)
	if body == "" {
		body = strings.TrimSpace(ch.Description)
	}
	if body == "" {
		body = "No help for this challenge yet."
	}
	body += "\n\n" + keyHelp
	a.view.ShowDialog(ui.Dialog{
		ID:       "help",
		Title:    firstNonEmpty(ch.Title, "Help"),
		Body:     body,
		Markdown: true,
		Actions:  []ui.DialogAction{{Label: "Close"}},
	})
}

const keyHelp = `## Keys

| key | action |
|---|---|
| q | it was not an error |
| w | too difficult, skip |
| e / r / o | edit in iD / JOSM / default editor |
| n | next task |
| c | pick a challenge |
| a | pick an edit area |
| s | your stats |
| t | stats for all challenges |
| y | copy a link to this task |
| arrows, + and - | move and zoom the map |
| ctrl+q | quit |`

// OpenStats shows the user's activity as the server records it, or what
// this client journalled when the server has nothing to say.
func (a *App) OpenStats() {
	a.spawn(func(ctx context.Context) {
		a.view.SetBusy(true, "Loading stats")
		mine, err := a.remote.UserStats(ctx)
		a.view.SetBusy(false, "")
		now := a.now()
		body := ""
		if err != nil {
			a.logger.Warn("stats.me_failed", map[string]any{"error": err, "kind": remote.Classify(err).String()})
		} else {
			body = userStatsBody(mine, now)
		}
		if body == "" {
			if body, err = a.journalStatsBody(ctx, now); err != nil {
				a.logger.Error("state.summary_failed", map[string]any{"error": err})
				a.notify(ui.NotifyError, "Could not read your stats.")
				return
			}
		}
		a.view.ShowDialog(ui.Dialog{
			ID:    "stats",
			Title: "Your stats",
			Body:  body,
			Actions: []ui.DialogAction{
				{Label: "All challenges", Handler: a.OpenChallengeStats},
				{Label: "Close"},
			},
		})
	})
}

func userStatsBody(st remote.UserStats, now time.Time) string {
	if len(st.Challenges) == 0 {
		return ""
	}
	slugs := make([]string, 0, len(st.Challenges))
	for slug := range st.Challenges {
		slugs = append(slugs, slug)
	}
	sort.Slice(slugs, func(i, j int) bool {
		return strings.ToLower(activityTitle(st, slugs[i])) < strings.ToLower(activityTitle(st, slugs[j]))
	})

	var b strings.Builder
	b.WriteString("Challenges you worked on:\n\n")
	for _, slug := range slugs {
		ca := st.Challenges[slug]
		fmt.Fprintf(&b, "- %s: you fixed %s out of the %s tasks you looked at",
			activityTitle(st, slug), humanize.Comma(int64(ca.Fixed())), humanize.Comma(int64(ca.Looked())))
		if first, last := ca.Span(); !first.IsZero() {
			fmt.Fprintf(&b, ", started %s, last worked on it %s",
				humanize.RelTime(first, now, "ago", "from now"), humanize.RelTime(last, now, "ago", "from now"))
		}
		b.WriteString(".\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func activityTitle(st remote.UserStats, slug string) string {
	return firstNonEmpty(st.Challenges[slug].Title, slug)
}

func (a *App) journalStatsBody(ctx context.Context, now time.Time) (string, error) {
	sum, err := a.store.GetSummary(ctx)
	if err != nil {
		return "", err
	}
	if sum.Actions == 0 {
		return "You have not reported any tasks from this computer yet.", nil
	}
	recent, err := a.store.RecentActions(ctx, 5)
	if err != nil {
		a.logger.Warn("state.recent_failed", map[string]any{"error": err})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You reported %s tasks in %s challenges and looked at %s.\n\n",
		humanize.Comma(int64(sum.Actions)), humanize.Comma(int64(sum.Challenges)), humanize.Comma(int64(sum.TasksSeen)))
	for _, act := range []remote.Action{remote.ActionFixed, remote.ActionFalsePositive, remote.ActionSkipped, remote.ActionAlreadyFixed} {
		if n := sum.ByAction[string(act)]; n > 0 {
			fmt.Fprintf(&b, "- %s: %s\n", act.Label(), humanize.Comma(int64(n)))
		}
	}
	if !sum.FirstSeen.IsZero() {
		fmt.Fprintf(&b, "\nPlaying since %s, last report %s.\n",
			humanize.RelTime(sum.FirstSeen, now, "ago", "from now"), humanize.RelTime(sum.LastAction, now, "ago", "from now"))
	}
	if len(recent) > 0 {
		b.WriteString("\nRecently:\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "- %s/%s %s, %s\n", r.Challenge, r.TaskID, remote.Action(r.Action).Label(), humanize.RelTime(r.At, now, "ago", "from now"))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// OpenChallengeStats shows how far along every challenge is.
func (a *App) OpenChallengeStats() {
	a.spawn(func(ctx context.Context) {
		a.view.SetBusy(true, "Loading stats")
		all, err := a.remote.ChallengeStats(ctx)
		a.view.SetBusy(false, "")
		if err != nil {
			a.fail("stats.challenges", err)
			return
		}
		if len(all) == 0 {
			a.notify(ui.NotifyInfo, "No challenge stats yet.")
			return
		}
		a.view.ShowDialog(ui.Dialog{
			ID:      "challenge-stats",
			Title:   "All challenges",
			Body:    challengeStatsBody(all),
			Actions: []ui.DialogAction{{Label: "Close"}},
		})
	})
}

func challengeStatsBody(all map[string]remote.ChallengeSummary) string {
	slugs := make([]string, 0, len(all))
	for slug := range all {
		slugs = append(slugs, slug)
	}
	title := func(slug string) string { return firstNonEmpty(all[slug].Title, slug) }
	sort.Slice(slugs, func(i, j int) bool {
		return strings.ToLower(title(slugs[i])) < strings.ToLower(title(slugs[j]))
	})

	lines := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		sum := all[slug]
		total := sum.Total()
		if total == 0 {
			lines = append(lines, fmt.Sprintf("- %s: no tasks", title(slug)))
			continue
		}
		fixed := sum.Fixed()
		lines = append(lines, fmt.Sprintf("- %s: %s out of %s tasks fixed (%d%%)",
			title(slug), humanize.Comma(int64(fixed)), humanize.Comma(int64(total)), int(math.Round(100*float64(fixed)/float64(total)))))
	}
	return strings.Join(lines, "\n")
}

func (a *App) CopyShareLink() {
	a.mu.Lock()
	link := a.shareLinkLocked()
	a.mu.Unlock()
	if link == "" {
		a.view.FlashStatus(msgNoTask)
		return
	}
	if err := a.clipboard.Copy(link); err != nil {
		a.logger.Warn("share.copy_failed", map[string]any{"error": err})
		a.notify(ui.NotifyInfo, "Share this task: "+link)
		return
	}
	a.view.FlashStatus("Link copied: " + link)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
