package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/spigell/hh-notifier/internal/ai"
	"github.com/spigell/hh-notifier/internal/headhunter"
	"github.com/spigell/hh-notifier/internal/store"
)

// Score badge tiers.
const (
	badgeHighThreshold   = 90
	badgeMediumThreshold = 70
)

// RenderVacancy formats a posting as a Telegram HTML message. The score
// badge and reasoning block appear only when scoring produced a result.
func RenderVacancy(v *headhunter.Vacancy, assessment *ai.Assessment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔥 <b>%s</b>\n", html.EscapeString(v.Name))
	fmt.Fprintf(&b, "🏢 %s (%s)\n", html.EscapeString(v.Employer.Name), html.EscapeString(v.Area.Name))
	fmt.Fprintf(&b, "💰 %s\n", html.EscapeString(v.Salary.Display()))
	if v.Experience.Name != "" {
		fmt.Fprintf(&b, "🧳 %s\n", html.EscapeString(v.Experience.Name))
	}

	if assessment != nil && assessment.Score >= 0 {
		fmt.Fprintf(&b, "\n%s <b>%d/100</b>\n", scoreBadge(assessment.Score), assessment.Score)
		if assessment.Stack != "" {
			fmt.Fprintf(&b, "🛠 %s\n", html.EscapeString(assessment.Stack))
		}
		if assessment.Pros != "" {
			fmt.Fprintf(&b, "➕ %s\n", html.EscapeString(assessment.Pros))
		}
		if assessment.Cons != "" {
			fmt.Fprintf(&b, "➖ %s\n", html.EscapeString(assessment.Cons))
		}
		if assessment.Verdict != "" {
			fmt.Fprintf(&b, "💬 <i>%s</i>\n", html.EscapeString(assessment.Verdict))
		}
	}

	fmt.Fprintf(&b, "\n🔗 %s", v.AlternateURL)

	return b.String()
}

func scoreBadge(score int) string {
	switch {
	case score >= badgeHighThreshold:
		return "🟢"
	case score >= badgeMediumThreshold:
		return "🟡"
	default:
		return "🔴"
	}
}

// RenderSettings shows the current chat configuration.
func RenderSettings(s store.Settings) string {
	remote := "off"
	if s.RemoteOnly {
		remote = "on"
	}

	experience := s.Experience
	if experience == "" {
		experience = "any"
	}

	area := s.Area
	if area == "" {
		area = "worldwide"
	}

	return fmt.Sprintf(`<b>Current settings</b>
🔎 Query: %s
💰 Min salary: %d
🧳 Experience: %s
🌍 Area: %s
🏠 Remote only: %s
📖 Search depth: %d`,
		html.EscapeString(s.Query), s.MinSalary, html.EscapeString(experience),
		html.EscapeString(area), remote, s.SearchDepth,
	)
}

// RenderFavorites lists the saved postings.
func RenderFavorites(favorites []store.Favorite) string {
	if len(favorites) == 0 {
		return "No favorites yet. Use the ☆ button under a vacancy to save it."
	}

	var b strings.Builder
	b.WriteString("<b>Favorites</b>\n\n")
	for _, fav := range favorites {
		title := fav.Title
		if title == "" {
			// Identifier-only stub saved after a cache miss.
			title = "Vacancy " + fav.ID
		}
		fmt.Fprintf(&b, "⭐ <b>%s</b>", html.EscapeString(title))
		if fav.Employer != "" {
			fmt.Fprintf(&b, " — %s", html.EscapeString(fav.Employer))
		}
		if fav.Salary != "" {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(fav.Salary))
		}
		if fav.URL != "" {
			fmt.Fprintf(&b, "\n%s", fav.URL)
		}
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String())
}

// RenderStats formats the aggregated search report.
func RenderStats(stats []store.QueryStats) string {
	if len(stats) == 0 {
		return "No stats recorded yet."
	}

	var b strings.Builder
	b.WriteString("<b>Last 7 days</b>\n\n")
	for _, st := range stats {
		fmt.Fprintf(&b, "📅 %s — <b>%s</b>\n", st.Day, html.EscapeString(st.Query))
		fmt.Fprintf(&b, "   postings: %d", st.Count)
		if st.AvgSalary > 0 {
			fmt.Fprintf(&b, ", avg salary: %.0f", st.AvgSalary)
		}
		if st.TopEmployer != "" {
			fmt.Fprintf(&b, ", top employer: %s", html.EscapeString(st.TopEmployer))
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}
