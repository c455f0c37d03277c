// Package render turns provider webhook events into the HTML text sent to
// Telegram. Rendering returns a sum-typed Result instead of raising: the
// "nothing to say" case is a first-class value the processor can branch on.
package render

import (
	"fmt"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

type Kind int

const (
	// KindRendered means Text holds a deliverable message.
	KindRendered Kind = iota
	// KindSkipped means the event is a deliberate no-op (e.g. a push event
	// already covered by pipeline consolidation, or an action verb nobody
	// cares about). Not an error.
	KindSkipped
	// KindUnsupported means the payload shape cannot produce meaningful
	// output. Logged as an error by the caller; the item is dropped.
	KindUnsupported
)

type Result struct {
	Kind   Kind
	Text   string
	Reason string
}

func Rendered(text string) Result {
	return Result{Kind: KindRendered, Text: text}
}

func Skipped(reason string) Result {
	return Result{Kind: KindSkipped, Reason: reason}
}

func Unsupported(reason string) Result {
	return Result{Kind: KindUnsupported, Reason: reason}
}

// Event renders any supported webhook event into chat text. Pipeline and
// job events are not handled here: the reconciler owns those because their
// text depends on tracked state.
func Event(ev any) Result {
	switch e := ev.(type) {
	case *gitlab.PushEvent:
		// Pipeline consolidation already tells the story of a push.
		return Skipped("push events are covered by pipeline notifications")
	case *gitlab.TagEvent:
		return tagPush(e)
	case *gitlab.IssueEvent:
		return issue(e)
	case *gitlab.MergeEvent:
		return mergeRequest(e)
	case *gitlab.CommentEvent:
		return note(e)
	case *gitlab.WikiPageEvent:
		return wikiPage(e)
	case *gitlab.DeploymentEvent:
		return deployment(e)
	case *gitlab.ReleaseEvent:
		return release(e)
	default:
		return Unsupported(fmt.Sprintf("no renderer for %T", ev))
	}
}
