package tracing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tracenav/stage"
)

func stageCode(c int) stage.Code {
	return stage.Code(c)
}

var _ = Describe("Preprocess", func() {
	It("should chain the end time of each event to the next event", func() {
		inst := makeInst(1,
			[]float64{1, 2, 4, 7, 11},
			[]int{1, 2, 3, 4, 14})

		err := Preprocess([]*Instruction{inst})

		Expect(err).ToNot(HaveOccurred())
		for i := 0; i < len(inst.Events)-1; i++ {
			Expect(inst.Events[i].EndTime).To(Equal(inst.Events[i+1].Time))
		}
		last := inst.Events[len(inst.Events)-1]
		Expect(last.EndTime).To(Equal(last.Time))
		Expect(last.Duration()).To(BeZero())
	})

	It("should reconstruct durations with repeated timestamps", func() {
		inst := makeInst(7, []float64{0, 5, 5}, []int{0, 1, 2})

		err := Preprocess([]*Instruction{inst})

		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Events[0].Duration()).To(Equal(5.0))
		Expect(inst.Events[1].Duration()).To(Equal(0.0))
		Expect(inst.Events[2].EndTime).To(Equal(5.0))
		Expect(inst.Events[2].Duration()).To(Equal(0.0))
	})

	It("should assign the batch index and the owner", func() {
		a := makeInst(10, []float64{1, 2}, []int{1, 3})
		b := makeInst(3, []float64{0.5}, []int{14})

		err := Preprocess([]*Instruction{a, b})

		Expect(err).ToNot(HaveOccurred())
		for _, e := range a.Events {
			Expect(e.InstructionIndex).To(Equal(0))
			Expect(e.Inst).To(BeIdenticalTo(a))
		}
		Expect(b.Events[0].InstructionIndex).To(Equal(1))
		Expect(b.Events[0].Inst).To(BeIdenticalTo(b))
		Expect(a.StartTime()).To(Equal(1.0))
		Expect(a.EndTime()).To(Equal(2.0))
	})

	It("should accept an empty batch", func() {
		Expect(Preprocess(nil)).To(Succeed())
	})

	It("should reject an instruction without events and change nothing", func() {
		good := makeInst(1, []float64{1, 2}, []int{1, 3})
		empty := &Instruction{ID: 2}

		err := Preprocess([]*Instruction{good, empty})

		var emptyErr *EmptyInstructionError
		Expect(errors.As(err, &emptyErr)).To(BeTrue())
		Expect(emptyErr.ID).To(Equal(uint64(2)))
		Expect(emptyErr.Index).To(Equal(1))
		Expect(good.Events[0].Inst).To(BeNil())
		Expect(good.Events[0].EndTime).To(BeZero())
	})
})

var _ = Describe("TimeRange", func() {
	It("should order its ends", func() {
		r := NewTimeRange(5, 2)

		Expect(r.Start).To(Equal(2.0))
		Expect(r.End).To(Equal(5.0))
		Expect(r.Duration()).To(Equal(3.0))
	})

	It("should tell overlaps", func() {
		r := TimeRange{Start: 10, End: 20}

		Expect(r.Overlaps(0, 10)).To(BeTrue())
		Expect(r.Overlaps(20, 30)).To(BeTrue())
		Expect(r.Overlaps(12, 15)).To(BeTrue())
		Expect(r.Overlaps(0, 9.9)).To(BeFalse())
		Expect(r.Overlaps(20.1, 30)).To(BeFalse())
	})
})
