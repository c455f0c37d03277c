package service_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/raquezha/nuecagram/common/id"
	"github.com/raquezha/nuecagram/internal/service"
	"github.com/raquezha/nuecagram/internal/store"
	"github.com/raquezha/nuecagram/internal/webhook"
)

func jobPayload(pipelineID, buildID int64, name, stage, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"object_kind": "build",
		"ref": "main",
		"build_id": %d,
		"build_name": %q,
		"build_stage": %q,
		"build_status": %q,
		"build_duration": 12.5,
		"pipeline_id": %d,
		"project_name": "dispatcher-app",
		"user": {"id": 124, "name": "Razyl Vidal", "username": "razylvidal"},
		"commit": {"sha": "a811f8ab22f7c28183a28a595b034ec8bc85b935", "message": "Bump version"},
		"repository": {"name": "dispatcher-app", "homepage": "https://gitlab.com/android-team/dispatcher-app"}
	}`, buildID, name, stage, status, pipelineID))
}

func pipelinePayload(pipelineID int64, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"object_kind": "pipeline",
		"object_attributes": {
			"id": %d,
			"ref": "main",
			"status": %q,
			"stages": ["test", "build"],
			"duration": 95
		},
		"user": {"id": 1, "name": "Test User", "username": "testuser"},
		"project": {"name": "test-project", "web_url": "https://gitlab.com/test/project"},
		"commit": {"id": "abc123def456", "message": "Test commit"},
		"builds": [
			{"id": 888888, "stage": "test", "name": "test-job", "status": %q, "duration": 10.0}
		]
	}`, pipelineID, status, status))
}

func parseEvent(eventType gitlab.EventType, payload []byte) any {
	event, err := gitlab.ParseWebhook(eventType, payload)
	Expect(err).NotTo(HaveOccurred())
	return event
}

var _ = Describe("Reconciler", func() {
	var (
		ctx        context.Context
		messenger  *fakeMessenger
		pipelines  *store.PipelineStore
		reconciler *service.Reconciler
		route      webhook.ChatRoute
	)

	process := func(eventType gitlab.EventType, payload []byte) {
		env := webhook.NewEnvelope(parseEvent(eventType, payload), route)
		Expect(reconciler.Process(ctx, env)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		messenger = newFakeMessenger()
		pipelines = store.NewPipelineStore()
		delivery := service.NewDelivery(messenger, pipelines)
		reconciler = service.NewReconciler(delivery, pipelines, 2*time.Hour)

		Expect(id.Init(1)).To(Succeed())

		var err error
		route, err = webhook.NewChatRoute("-100123", "")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("job-only mode", func() {
		It("accumulates jobs into one live message", func() {
			process(gitlab.EventTypeJob, jobPayload(53093, 473580, "unit-test", "test", "pending"))
			process(gitlab.EventTypeJob, jobPayload(53093, 473580, "unit-test", "test", "running"))
			process(gitlab.EventTypeJob, jobPayload(53093, 473581, "build-apk", "build", "success"))

			Expect(messenger.sends).To(HaveLen(1))
			Expect(messenger.edits).To(HaveLen(2))

			entry, ok := pipelines.Get(53093)
			Expect(ok).To(BeTrue())
			Expect(entry.Jobs).To(HaveLen(2))
			Expect(entry.OwnedByPipelineEvent).To(BeFalse())

			// 473580 still running, so no completion yet.
			Expect(messenger.replies).To(BeEmpty())
			Expect(messenger.edits[1].text).To(ContainSubstring("🔄 Pipeline"))
		})

		It("completes once every job is terminal", func() {
			process(gitlab.EventTypeJob, jobPayload(53093, 473580, "unit-test", "test", "pending"))
			process(gitlab.EventTypeJob, jobPayload(53093, 473580, "unit-test", "test", "running"))
			process(gitlab.EventTypeJob, jobPayload(53093, 473581, "build-apk", "build", "success"))
			process(gitlab.EventTypeJob, jobPayload(53093, 473580, "unit-test", "test", "success"))

			Expect(messenger.sends).To(HaveLen(1))
			Expect(messenger.edits).To(HaveLen(3))
			Expect(messenger.edits[2].text).To(ContainSubstring("passed"))

			Expect(messenger.replies).To(HaveLen(1))
			Expect(messenger.replies[0].text).To(HavePrefix("@razylvidal "))

			_, ok := pipelines.Get(53093)
			Expect(ok).To(BeFalse())
		})

		It("fails the aggregate on a hard job failure", func() {
			process(gitlab.EventTypeJob, jobPayload(1, 10, "lint", "check", "failed"))

			Expect(messenger.sends).To(HaveLen(1))
			Expect(messenger.sends[0].text).To(ContainSubstring("❌ Pipeline"))
			Expect(messenger.replies).To(HaveLen(1))

			_, ok := pipelines.Get(1)
			Expect(ok).To(BeFalse())
		})

		It("fills metadata from the job event", func() {
			process(gitlab.EventTypeJob, jobPayload(2, 20, "unit-test", "test", "running"))

			entry, ok := pipelines.Get(2)
			Expect(ok).To(BeTrue())
			Expect(entry.Meta.ProjectName).To(Equal("dispatcher-app"))
			Expect(entry.Meta.ProjectWebURL).To(Equal("https://gitlab.com/android-team/dispatcher-app"))
			Expect(entry.Meta.Username).To(Equal("razylvidal"))
			Expect(entry.Meta.CommitSHA).To(Equal("a811f8ab22f7c28183a28a595b034ec8bc85b935"))
		})
	})

	Describe("pipeline ownership", func() {
		It("discards job events once a pipeline event owns the id", func() {
			process(gitlab.EventTypePipeline, pipelinePayload(99999, "running"))
			Expect(messenger.sends).To(HaveLen(1))

			process(gitlab.EventTypeJob, jobPayload(99999, 888888, "test-job", "test", "running"))

			Expect(messenger.sends).To(HaveLen(1))
			Expect(messenger.edits).To(BeEmpty())
			Expect(messenger.replies).To(BeEmpty())

			entry, ok := pipelines.Get(99999)
			Expect(ok).To(BeTrue())
			Expect(entry.Jobs).To(BeEmpty())
		})

		It("takes ownership retroactively after job events arrived first", func() {
			process(gitlab.EventTypeJob, jobPayload(77, 1, "unit-test", "test", "running"))
			process(gitlab.EventTypePipeline, pipelinePayload(77, "running"))
			process(gitlab.EventTypeJob, jobPayload(77, 2, "build-apk", "build", "running"))

			// send, edit from the pipeline event, then nothing for the job.
			Expect(messenger.sends).To(HaveLen(1))
			Expect(messenger.edits).To(HaveLen(1))
		})

		It("edits the same live message across the ownership flip", func() {
			process(gitlab.EventTypeJob, jobPayload(78, 1, "unit-test", "test", "running"))
			process(gitlab.EventTypePipeline, pipelinePayload(78, "running"))

			Expect(messenger.edits).To(HaveLen(1))
			entry, ok := pipelines.Get(78)
			Expect(ok).To(BeTrue())
			Expect(entry.LiveMessageID).To(Equal(messenger.edits[0].messageID))
		})
	})

	Describe("pipeline terminal handling", func() {
		It("replies once and clears tracking on success", func() {
			process(gitlab.EventTypePipeline, pipelinePayload(500, "running"))
			process(gitlab.EventTypePipeline, pipelinePayload(500, "success"))

			Expect(messenger.sends).To(HaveLen(1))
			Expect(messenger.edits).To(HaveLen(1))
			Expect(messenger.replies).To(HaveLen(1))
			Expect(messenger.replies[0].text).To(HavePrefix("@testuser "))

			_, ok := pipelines.Get(500)
			Expect(ok).To(BeFalse())
		})

		It("starts a fresh live message if events continue after the clear", func() {
			process(gitlab.EventTypePipeline, pipelinePayload(501, "success"))
			process(gitlab.EventTypePipeline, pipelinePayload(501, "running"))

			Expect(messenger.sends).To(HaveLen(2))
		})
	})

	Describe("generic events", func() {
		It("sends a one-shot notification for a tag push", func() {
			payload := []byte(`{
				"object_kind": "tag_push",
				"ref": "refs/tags/v1.2.0",
				"before": "0000000000000000000000000000000000000000",
				"after": "a811f8ab22f7c28183a28a595b034ec8bc85b935",
				"user_name": "Jan",
				"repository": {"name": "nuecagram", "homepage": "https://gitlab.com/raquezha/nuecagram"},
				"project": {"name": "nuecagram", "web_url": "https://gitlab.com/raquezha/nuecagram"}
			}`)
			env := webhook.NewEnvelope(parseEvent(gitlab.EventTypeTagPush, payload), route)
			Expect(reconciler.Process(ctx, env)).To(Succeed())

			Expect(messenger.sends).To(HaveLen(1))
			Expect(pipelines.Len()).To(BeZero())
		})

		It("treats push events as a deliberate no-op", func() {
			env := webhook.NewEnvelope(&gitlab.PushEvent{}, route)
			Expect(reconciler.Process(ctx, env)).To(Succeed())
			Expect(messenger.sends).To(BeEmpty())
		})

		It("surfaces unsupported payload shapes as typed errors", func() {
			env := webhook.NewEnvelope(struct{}{}, route)
			err := reconciler.Process(ctx, env)

			var unsupported *webhook.UnsupportedEventError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
		})
	})
})
