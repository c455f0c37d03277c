package webhook_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/raquezha/nuecagram/common/id"
	"github.com/raquezha/nuecagram/internal/http/handler/webhook"
	"github.com/raquezha/nuecagram/internal/queue"
	hook "github.com/raquezha/nuecagram/internal/webhook"
)

const jobPayload = `{
	"object_kind": "build",
	"ref": "main",
	"build_id": 473580,
	"build_name": "unit-test",
	"build_stage": "test",
	"build_status": "running",
	"pipeline_id": 53093,
	"project_name": "dispatcher-app",
	"user": {"id": 124, "name": "Razyl Vidal", "username": "razylvidal"},
	"commit": {"sha": "a811f8ab22f7c28183a28a595b034ec8bc85b935", "message": "Bump version"}
}`

var _ = Describe("GitLabWebhookHandler", func() {
	var (
		router      *gin.Engine
		ingestQueue *queue.Queue
	)

	post := func(eventHeader, token, chatID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if eventHeader != "" {
			req.Header.Set(hook.HeaderGitlabEvent, eventHeader)
		}
		if token != "" {
			req.Header.Set(hook.HeaderSecretToken, token)
		}
		if chatID != "" {
			req.Header.Set(hook.HeaderChatID, chatID)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		Expect(id.Init(1)).To(Succeed())

		gin.SetMode(gin.TestMode)
		router = gin.New()
		ingestQueue = queue.New(10)

		h := webhook.NewGitLabWebhookHandler(hook.NewValidator("s3cret"), ingestQueue, 1<<20)
		router.POST("/webhook", h.HandleEvent)
	})

	It("enqueues a valid job event", func() {
		w := post("Job Hook", "s3cret", "-100123", jobPayload)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(ingestQueue.Len()).To(Equal(1))

		env := <-ingestQueue.Drain()
		ev, ok := env.Event.(*gitlab.JobEvent)
		Expect(ok).To(BeTrue())
		Expect(ev.PipelineID).To(Equal(int64(53093)))
		Expect(ev.BuildID).To(Equal(int64(473580)))
		Expect(env.Route.ChatID).To(Equal("-100123"))
	})

	It("treats the legacy Build Hook header like Job Hook", func() {
		w := post("Build Hook", "s3cret", "-100123", jobPayload)

		Expect(w.Code).To(Equal(http.StatusOK))
		env := <-ingestQueue.Drain()
		_, ok := env.Event.(*gitlab.JobEvent)
		Expect(ok).To(BeTrue())
	})

	It("forwards the topic id when present", func() {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(jobPayload))
		req.Header.Set(hook.HeaderGitlabEvent, "Job Hook")
		req.Header.Set(hook.HeaderSecretToken, "s3cret")
		req.Header.Set(hook.HeaderChatID, "-100123")
		req.Header.Set(hook.HeaderTopicID, "42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		env := <-ingestQueue.Drain()
		Expect(env.Route.TopicID).To(Equal("42"))
	})

	It("rejects a wrong secret token", func() {
		w := post("Job Hook", "wrong", "-100123", jobPayload)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(ingestQueue.Len()).To(BeZero())
	})

	It("rejects a missing secret token", func() {
		w := post("Job Hook", "", "-100123", jobPayload)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects a missing chat id header", func() {
		w := post("Job Hook", "s3cret", "", jobPayload)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(ingestQueue.Len()).To(BeZero())
	})

	It("acknowledges unsupported event types without enqueueing", func() {
		w := post("Emoji Hook", "s3cret", "-100123", `{"object_kind": "emoji"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("not supported"))
		Expect(ingestQueue.Len()).To(BeZero())
	})

	It("rejects an unparsable payload", func() {
		w := post("Job Hook", "s3cret", "-100123", `{not json`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(ingestQueue.Len()).To(BeZero())
	})

	It("rejects a body over the size ceiling", func() {
		big := `{"pad": "` + strings.Repeat("x", 1<<20) + `"}`
		w := post("Job Hook", "s3cret", "-100123", big)

		Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
		Expect(ingestQueue.Len()).To(BeZero())
	})

	It("refuses new events after shutdown closed the queue", func() {
		ingestQueue.Close()
		w := post("Job Hook", "s3cret", "-100123", jobPayload)

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	})
})
