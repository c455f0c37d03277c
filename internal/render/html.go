package render

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

func bold(s string) string { return "<b>" + s + "</b>" }

func italic(s string) string { return "<i>" + s + "</i>" }

func italicBold(s string) string { return italic(bold(s)) }

func link(href, label string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), label)
}

// escape neutralizes markup in provider-supplied text. Telegram's HTML
// parse mode rejects the whole message on a stray "<", so anything a user
// can type (commit messages, titles, names) must pass through here.
func escape(s string) string { return html.EscapeString(s) }

func escapePath(s string) string {
	return url.PathEscape(s)
}

const nullSHA = "0000000000000000000000000000000000000000"

func isNullSHA(s string) bool { return s == nullSHA }

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// formatDuration renders seconds as MM:SS.
func formatDuration(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// formattedAction maps provider action verbs to past tense. Unknown verbs
// mean there is nothing worth announcing.
func formattedAction(action string) (string, bool) {
	switch strings.ToLower(action) {
	case "delete":
		return "deleted", true
	case "create":
		return "created", true
	case "update":
		return "updated", true
	case "open":
		return "opened", true
	case "close":
		return "closed", true
	case "reopen":
		return "reopened", true
	case "approved", "unapproved", "approval", "unapproval":
		return strings.ToLower(action), true
	case "merge":
		return "merged", true
	default:
		return "", false
	}
}
