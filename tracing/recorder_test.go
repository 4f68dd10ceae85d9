package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tracenav/stage"
)

var _ = Describe("Recorder", func() {
	var (
		w *recordingWriter
		r *Recorder
	)

	BeforeEach(func() {
		w = &recordingWriter{}
		r = NewRecorder(w)
	})

	It("should write an instruction when it completes", func() {
		inst := Instruction{ID: 7, WavefrontID: 2, Asm: "v_mov_b32 v0, 1"}

		Expect(r.StartInstruction(inst, 1, stage.Fetch)).To(Succeed())
		Expect(r.StepInstruction(7, 3, stage.FetchDone)).To(Succeed())
		Expect(r.StepInstruction(7, 4, stage.Issue)).To(Succeed())
		Expect(r.InFlight()).To(Equal(1))
		Expect(w.insts).To(BeEmpty())

		Expect(r.EndInstruction(7, 9)).To(Succeed())

		Expect(r.InFlight()).To(Equal(0))
		Expect(w.insts).To(HaveLen(1))
		Expect(w.insts[0].WavefrontID).To(Equal(2))
		Expect(w.insts[0].StartTime()).To(Equal(1.0))
		Expect(w.insts[0].EndTime()).To(Equal(9.0))
		Expect(w.insts[0].Events[3].Stage).To(Equal(stage.Complete))
	})

	It("should refuse an instruction that is already in flight", func() {
		Expect(r.StartInstruction(Instruction{ID: 1}, 1, stage.Fetch)).
			To(Succeed())

		Expect(r.StartInstruction(Instruction{ID: 1}, 2, stage.Fetch)).
			ToNot(Succeed())
	})

	It("should refuse events that go back in time", func() {
		Expect(r.StartInstruction(Instruction{ID: 1}, 5, stage.Fetch)).
			To(Succeed())

		Expect(r.StepInstruction(1, 4, stage.Issue)).ToNot(Succeed())
		Expect(r.EndInstruction(1, 2)).ToNot(Succeed())
		Expect(w.insts).To(BeEmpty())
	})

	It("should ignore instructions outside of the time range", func() {
		r.SetTimeRange(10, 20)

		Expect(r.StartInstruction(Instruction{ID: 1}, 2, stage.Fetch)).
			To(Succeed())
		Expect(r.EndInstruction(1, 5)).To(Succeed())

		Expect(r.StartInstruction(Instruction{ID: 2}, 25, stage.Fetch)).
			To(Succeed())
		Expect(r.StepInstruction(2, 26, stage.Issue)).To(Succeed())
		Expect(r.EndInstruction(2, 27)).To(Succeed())

		Expect(r.StartInstruction(Instruction{ID: 3}, 8, stage.Fetch)).
			To(Succeed())
		Expect(r.EndInstruction(3, 12)).To(Succeed())

		Expect(w.insts).To(HaveLen(1))
		Expect(w.insts[0].ID).To(Equal(uint64(3)))
	})

	It("should drop unfinished instructions when terminated", func() {
		Expect(r.StartInstruction(Instruction{ID: 1}, 2, stage.Fetch)).
			To(Succeed())

		Expect(r.Terminate()).To(Succeed())

		Expect(r.InFlight()).To(Equal(0))
		Expect(w.flushed).To(Equal(1))
		Expect(r.EndInstruction(1, 3)).To(Succeed())
		Expect(w.insts).To(BeEmpty())
	})
})
