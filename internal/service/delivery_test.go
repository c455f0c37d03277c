package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/raquezha/nuecagram/internal/service"
	"github.com/raquezha/nuecagram/internal/store"
	"github.com/raquezha/nuecagram/internal/webhook"
)

var _ = Describe("Delivery", func() {
	var (
		ctx       context.Context
		messenger *fakeMessenger
		pipelines *store.PipelineStore
		delivery  *service.Delivery
		route     webhook.ChatRoute
	)

	BeforeEach(func() {
		ctx = context.Background()
		messenger = newFakeMessenger()
		pipelines = store.NewPipelineStore()
		delivery = service.NewDelivery(messenger, pipelines)

		var err error
		route, err = webhook.NewChatRoute("-100123", "7")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Deliver", func() {
		It("sends exactly once then edits for the same pipeline", func() {
			first, err := delivery.Deliver(ctx, 53093, "pending", route)
			Expect(err).NotTo(HaveOccurred())

			second, err := delivery.Deliver(ctx, 53093, "running", route)
			Expect(err).NotTo(HaveOccurred())

			third, err := delivery.Deliver(ctx, 53093, "success", route)
			Expect(err).NotTo(HaveOccurred())

			Expect(messenger.sends).To(HaveLen(1))
			Expect(messenger.edits).To(HaveLen(2))
			Expect(messenger.edits[0].messageID).To(Equal(first))
			Expect(messenger.edits[1].messageID).To(Equal(second))
			Expect(third).To(Equal(first))
		})

		It("routes chat and topic ids through to the transport", func() {
			_, err := delivery.Deliver(ctx, 1, "text", route)
			Expect(err).NotTo(HaveOccurred())

			Expect(messenger.sends[0].chatID).To(Equal("-100123"))
			Expect(messenger.sends[0].topicID).To(Equal("7"))
		})

		It("tracks the id returned by the platform", func() {
			messageID, err := delivery.Deliver(ctx, 1, "text", route)
			Expect(err).NotTo(HaveOccurred())

			entry, ok := pipelines.Get(1)
			Expect(ok).To(BeTrue())
			Expect(entry.LiveMessageID).To(Equal(messageID))
		})

		It("sends separate live messages for different pipelines", func() {
			_, err := delivery.Deliver(ctx, 1, "a", route)
			Expect(err).NotTo(HaveOccurred())
			_, err = delivery.Deliver(ctx, 2, "b", route)
			Expect(err).NotTo(HaveOccurred())

			Expect(messenger.sends).To(HaveLen(2))
			Expect(messenger.edits).To(BeEmpty())
		})

		Context("when the transport fails", func() {
			It("leaves the tracked id unchanged so the next event retries", func() {
				messageID, err := delivery.Deliver(ctx, 1, "a", route)
				Expect(err).NotTo(HaveOccurred())

				messenger.editErr = errors.New("telegram unavailable")
				_, err = delivery.Deliver(ctx, 1, "b", route)
				Expect(err).To(HaveOccurred())

				entry, ok := pipelines.Get(1)
				Expect(ok).To(BeTrue())
				Expect(entry.LiveMessageID).To(Equal(messageID))

				messenger.editErr = nil
				_, err = delivery.Deliver(ctx, 1, "c", route)
				Expect(err).NotTo(HaveOccurred())
				Expect(messenger.edits).To(HaveLen(1))
				Expect(messenger.edits[0].messageID).To(Equal(messageID))
			})

			It("does not create tracking for a failed first send", func() {
				messenger.sendErr = errors.New("telegram unavailable")
				_, err := delivery.Deliver(ctx, 1, "a", route)
				Expect(err).To(HaveOccurred())

				entry, ok := pipelines.Get(1)
				if ok {
					Expect(entry.LiveMessageID).To(BeEmpty())
				}
			})
		})
	})

	Describe("Complete", func() {
		It("replies under the live message tagging the user and clears tracking", func() {
			messageID, err := delivery.Deliver(ctx, 53093, "done", route)
			Expect(err).NotTo(HaveOccurred())

			delivery.Complete(ctx, 53093, store.JobStatusSuccess, "raquezha", messageID, route)

			Expect(messenger.replies).To(HaveLen(1))
			Expect(messenger.replies[0].replyTo).To(Equal(messageID))
			Expect(messenger.replies[0].text).To(HavePrefix("@raquezha "))

			_, ok := pipelines.Get(53093)
			Expect(ok).To(BeFalse())
		})

		It("skips the reply when no username is known", func() {
			messageID, err := delivery.Deliver(ctx, 1, "done", route)
			Expect(err).NotTo(HaveOccurred())

			delivery.Complete(ctx, 1, store.JobStatusFailed, "", messageID, route)

			Expect(messenger.replies).To(BeEmpty())
			_, ok := pipelines.Get(1)
			Expect(ok).To(BeFalse())
		})

		It("still clears tracking when the reply fails", func() {
			messageID, err := delivery.Deliver(ctx, 1, "done", route)
			Expect(err).NotTo(HaveOccurred())

			messenger.replyErr = errors.New("telegram unavailable")
			delivery.Complete(ctx, 1, store.JobStatusSuccess, "raquezha", messageID, route)

			_, ok := pipelines.Get(1)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("SendOnce", func() {
		It("sends without tracking anything", func() {
			Expect(delivery.SendOnce(ctx, "release published", route)).To(Succeed())
			Expect(messenger.sends).To(HaveLen(1))
			Expect(pipelines.Len()).To(BeZero())
		})
	})
})
