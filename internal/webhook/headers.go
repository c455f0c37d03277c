package webhook

// Headers the webhook endpoint reads. GitLab forwards the custom
// X-Nuecagram-* entries configured per project hook alongside its own
// X-Gitlab-Event header.
const (
	HeaderGitlabEvent = "X-Gitlab-Event"
	HeaderSecretToken = "X-Nuecagram-Token"
	HeaderChatID      = "X-Nuecagram-Chat-Id"
	HeaderTopicID     = "X-Nuecagram-Topic-Id"
)
