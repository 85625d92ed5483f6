package status_test

import (
	"trackflow/domain/status"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("StatusFlow", func() {
	Describe("Next", func() {
		It("should walk the flow in order", func() {
			Expect(status.Next(status.Idea)).To(Equal(status.Specification))
			Expect(status.Next(status.Specification)).To(Equal(status.Development))
			Expect(status.Next(status.Development)).To(Equal(status.Testing))
			Expect(status.Next(status.Testing)).To(Equal(status.Live))
		})
		It("should return empty at the end of the flow", func() {
			Expect(status.Next(status.Live)).To(Equal(status.Status("")))
		})
		It("should return empty for unknown status", func() {
			Expect(status.Next(status.Status("archived"))).To(Equal(status.Status("")))
		})
	})

	Describe("Previous", func() {
		It("should walk the flow backwards", func() {
			Expect(status.Previous(status.Live)).To(Equal(status.Testing))
			Expect(status.Previous(status.Testing)).To(Equal(status.Development))
			Expect(status.Previous(status.Development)).To(Equal(status.Specification))
			Expect(status.Previous(status.Specification)).To(Equal(status.Idea))
		})
		It("should return empty at the beginning of the flow", func() {
			Expect(status.Previous(status.Idea)).To(Equal(status.Status("")))
		})
	})

	Describe("IsValid", func() {
		It("should accept every status of the flow", func() {
			for _, s := range status.Flow {
				Expect(status.IsValid(s)).To(BeTrue())
			}
		})
		It("should reject unknown values", func() {
			Expect(status.IsValid(status.Status("done"))).To(BeFalse())
			Expect(status.IsValid(status.Status(""))).To(BeFalse())
		})
	})

	Describe("IsFinal", func() {
		It("should only report live as final", func() {
			Expect(status.IsFinal(status.Live)).To(BeTrue())
			Expect(status.IsFinal(status.Testing)).To(BeFalse())
			Expect(status.IsFinal(status.Idea)).To(BeFalse())
		})
	})

	Describe("Progress", func() {
		It("should map statuses to leaf progress percentages", func() {
			Expect(status.Progress(status.Idea)).To(Equal(0.0))
			Expect(status.Progress(status.Specification)).To(Equal(20.0))
			Expect(status.Progress(status.Development)).To(Equal(60.0))
			Expect(status.Progress(status.Testing)).To(Equal(80.0))
			Expect(status.Progress(status.Live)).To(Equal(100.0))
		})
	})
})
