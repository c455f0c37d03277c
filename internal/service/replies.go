package service

import (
	"fmt"
	"math/rand/v2"

	"github.com/raquezha/nuecagram/internal/store"
)

var successReplies = []string{
	"✅ Stop sipping that coffee, pipeline passed!",
	"✅ The pipeline passed! Time to mass sa chismis.",
	"✅ Pipeline passed! You're officially a 10x developer today.",
	"✅ Pipeline passed! Even your code is surprised.",
	"✅ Success! The CI gods have smiled upon you.",
	"✅ Pipeline passed! Quick, deploy before someone breaks it!",
	"✅ It worked?! I mean... of course it worked! ✅",
	"✅ Pipeline passed! You may now mass peacefully sa may 7/11.",
	"✅ All green! Your code is chef's kiss today. 👨‍🍳💋",
	"✅ Pipeline passed! This calls for mass sa beer!",
}

var failedReplies = []string{
	"❌ The pipeline has passed... away. RIP. 💀",
	"❌ Pipeline failed! Time to mass sa stackoverflow.",
	"❌ Pipeline failed! But hey, at least you're consistent.",
	"❌ Build machine said: 'Nah, I don't think so.' ❌",
	"❌ Pipeline failed! Have you tried turning it off and on again?",
	"❌ Failed! The code gods demand a sacrifice (your lunch break).",
	"❌ Pipeline failed! git blame time! 🔍",
	"❌ Oops! Your code took the day off. Pipeline failed!",
	"❌ Pipeline failed! May the force rebuild with you.",
	"❌ Failed! Time to mass sa debug mode. 🐛",
}

var canceledReplies = []string{
	"⛔ Pipeline canceled! Someone got cold feet.",
	"⛔ Pipeline canceled! Commitment issues detected.",
	"⛔ Canceled! The pipeline ghosted you. 👻",
	"⛔ Pipeline canceled! It's not you, it's the code.",
	"⛔ Abort mission! Pipeline canceled!",
}

var skippedReplies = []string{
	"⏭️ Pipeline skipped! It said 'not today.'",
	"⏭️ Skipped! The pipeline is feeling lazy.",
	"⏭️ Pipeline skipped! Maybe tomorrow?",
	"⏭️ Skipped! Your pipeline is on vacation mode. 🏖️",
	"⏭️ Pipeline said 'skip' like it's a YouTube ad.",
}

func pick(pool []string) string {
	return pool[rand.IntN(len(pool))]
}

// replyForStatus picks a random completion remark for the given terminal
// status.
func replyForStatus(status store.JobStatus) string {
	switch status {
	case store.JobStatusSuccess:
		return pick(successReplies)
	case store.JobStatusFailed:
		return pick(failedReplies)
	case store.JobStatusCanceled:
		return pick(canceledReplies)
	case store.JobStatusSkipped:
		return pick(skippedReplies)
	default:
		return "Pipeline finished!"
	}
}

// CompletionReply formats the terminal reply tagging the triggering user.
func CompletionReply(status store.JobStatus, username string) string {
	return fmt.Sprintf("@%s %s", username, replyForStatus(status))
}
