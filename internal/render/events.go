package render

import (
	"fmt"
	"regexp"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

var (
	refRe         = regexp.MustCompile(`^refs/(heads|tags)/(.+)$`)
	issueNumberRe = regexp.MustCompile(`.*/issues/(\d+)`)
)

func tagPush(event *gitlab.TagEvent) Result {
	m := refRe.FindStringSubmatch(event.Ref)
	if m == nil {
		return Unsupported(fmt.Sprintf("unrecognized ref %q", event.Ref))
	}
	itemType := "tag"
	if m[1] == "heads" {
		itemType = "branch"
	}
	name := m[2]
	tagURL := link(fmt.Sprintf("%s/tree/%s", event.Repository.Homepage, escapePath(name)), escape(name))

	var verb string
	switch {
	case isNullSHA(event.Before):
		verb = "pushed new"
	case isNullSHA(event.After):
		verb = "deleted"
	default:
		verb = "updated"
	}
	return Rendered(fmt.Sprintf("%s %s %s %s at %s", bold(escape(event.UserName)), verb, itemType, tagURL, escape(event.Repository.Name)))
}

func issue(event *gitlab.IssueEvent) Result {
	action, ok := formattedAction(event.ObjectAttributes.Action)
	if !ok {
		return Skipped(fmt.Sprintf("issue action %q", event.ObjectAttributes.Action))
	}

	label := "issue"
	if m := issueNumberRe.FindStringSubmatch(event.ObjectAttributes.URL); m != nil {
		label = "issue#" + m[1]
	}

	return Rendered(actionWithTitle(
		event.User.Name,
		action,
		link(event.ObjectAttributes.URL, label),
		event.Project.Name,
		event.ObjectAttributes.Title,
		event.ObjectAttributes.Description,
	))
}

func mergeRequest(event *gitlab.MergeEvent) Result {
	action, ok := formattedAction(event.ObjectAttributes.Action)
	if !ok {
		return Skipped(fmt.Sprintf("merge request action %q", event.ObjectAttributes.Action))
	}

	label := fmt.Sprintf("merge request#%d", event.ObjectAttributes.IID)
	return Rendered(actionWithTitle(
		event.User.Name,
		action,
		link(event.ObjectAttributes.URL, label),
		event.Project.Name,
		event.ObjectAttributes.Title,
		event.ObjectAttributes.Description,
	))
}

func note(event *gitlab.CommentEvent) Result {
	var (
		url         string
		description string
	)
	switch event.ObjectAttributes.NoteableType {
	case "Issue":
		description = "Issue: " + event.Issue.Title
		url = link(event.ObjectAttributes.URL, "issue")
	case "MergeRequest":
		description = "Merge Request: " + event.MergeRequest.Title
		url = link(event.ObjectAttributes.URL, "merge request")
	case "Commit":
		description = "Commit Message: " + strings.TrimSpace(event.Commit.Message)
		url = link(event.ObjectAttributes.URL, "commit")
	default:
		// Snippet notes and anything newer are not worth a notification.
		return Skipped(fmt.Sprintf("note on %q", event.ObjectAttributes.NoteableType))
	}

	text := fmt.Sprintf("%s commented on %s in %s:\n\n%s\n\n%s",
		bold(escape(event.User.Name)),
		url,
		bold(escape(event.Project.Name)),
		escape(event.ObjectAttributes.Note),
		italic(escape(strings.TrimSpace(description))),
	)
	return Rendered(text)
}

func wikiPage(event *gitlab.WikiPageEvent) Result {
	action, ok := formattedAction(event.ObjectAttributes.Action)
	if !ok {
		return Skipped(fmt.Sprintf("wiki action %q", event.ObjectAttributes.Action))
	}
	return Rendered(fmt.Sprintf("%s %s a %s in project %s\n\n",
		bold(escape(event.User.Name)),
		bold(action),
		link(event.ObjectAttributes.URL, "Wiki Page"),
		escape(event.Project.Name),
	))
}

func deployment(event *gitlab.DeploymentEvent) Result {
	projectName := event.Project.Name
	if projectName == "" {
		projectName = "Unknown project"
	}
	environment := event.Environment
	if environment == "" {
		environment = "unknown environment"
	}
	user := "unknown user"
	if event.User != nil && event.User.Username != "" {
		user = event.User.Username
	}

	var statusText string
	switch event.Status {
	case "success":
		statusText = bold("succeeded.")
	case "failed":
		statusText = bold("failed.")
	case "created":
		statusText = bold("created.")
	case "canceling":
		statusText = bold("is being canceled.")
	case "canceled":
		statusText = bold("has been canceled.")
	default:
		statusText = fmt.Sprintf("has status %s.", event.Status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Deployment to %s in project %s %s", bold(escape(environment)), bold(escape(projectName)), statusText)
	if event.CommitURL != "" {
		fmt.Fprintf(&b, " Commit: %s", link(event.CommitURL, "link"))
	}
	fmt.Fprintf(&b, " Deployed by %s.", bold(escape(user)))
	return Rendered(b.String())
}

func release(event *gitlab.ReleaseEvent) Result {
	action, ok := formattedAction(event.Action)
	if !ok {
		return Skipped(fmt.Sprintf("release action %q", event.Action))
	}
	return Rendered(fmt.Sprintf("Release %s %s in project %s",
		bold(link(event.URL, escape(event.Name))),
		action,
		bold(escape(event.Project.Name)),
	))
}

func actionWithTitle(user, action, ref, projectName, title, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s in project %s\n\n", bold(escape(user)), bold(action), ref, escape(projectName))
	b.WriteString(bold(escape(title)))
	if description != "" {
		fmt.Fprintf(&b, "\n\t\t%s", italic(escape(description)))
	}
	return b.String()
}
