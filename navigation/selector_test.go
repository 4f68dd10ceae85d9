package navigation

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tracenav/tracing"
)

func sampleInsts() []*tracing.Instruction {
	return []*tracing.Instruction{
		{
			ID:  1,
			Asm: "s_load_dword s0, s[4:5], 0x0",
			Events: []*tracing.StageEvent{
				{Time: 3, Stage: 1},
				{Time: 4, Stage: 3},
				{Time: 5, Stage: 14},
			},
		},
	}
}

var _ = Describe("RangeSelector", func() {
	var (
		mockCtrl *gomock.Controller
		reader   *MockTraceReader
		handler  *MockDetailHandler
		minimap  *Minimap
		selector *RangeSelector
		ctx      context.Context
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		reader = NewMockTraceReader(mockCtrl)
		handler = NewMockDetailHandler(mockCtrl)
		ctx = context.Background()

		reader.EXPECT().Overview(gomock.Any(), 150).Return(sampleBuckets, nil)
		minimap = NewMinimap(reader, 300, 200)
		Expect(minimap.Resize(ctx, 300, 200)).To(Succeed())

		selector = NewRangeSelector(minimap, reader, handler)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should have no selection at first", func() {
		_, ok := selector.Current()

		Expect(ok).To(BeFalse())
	})

	It("should select and render the default range", func() {
		insts := sampleInsts()
		reader.EXPECT().Detail(gomock.Any(), 3.0, 6.0).Return(insts, nil)
		handler.EXPECT().
			Render(tracing.TimeRange{Start: 3, End: 6}, insts).
			DoAndReturn(func(_ tracing.TimeRange, got []*tracing.Instruction) error {
				Expect(got[0].Events[0].EndTime).To(Equal(4.0))
				Expect(got[0].Events[2].EndTime).To(Equal(5.0))
				return nil
			})

		r := selector.SelectDefault(ctx)

		Expect(r.Start).To(BeNumerically("~", 3, 1e-9))
		Expect(r.End).To(BeNumerically("~", 6, 1e-9))
		Expect(selector.Wait()).To(Succeed())
		current, ok := selector.Current()
		Expect(ok).To(BeTrue())
		Expect(current).To(Equal(r))
	})

	It("should release the context of a completed fetch", func() {
		var fetchCtx context.Context
		reader.EXPECT().Detail(gomock.Any(), 3.0, 4.0).
			DoAndReturn(func(ctx context.Context, _, _ float64) ([]*tracing.Instruction, error) {
				fetchCtx = ctx
				return []*tracing.Instruction{}, nil
			})
		handler.EXPECT().Render(tracing.TimeRange{Start: 3, End: 4}, gomock.Any())

		selector.Select(ctx, tracing.TimeRange{Start: 3, End: 4})
		Expect(selector.Wait()).To(Succeed())

		Expect(fetchCtx.Err()).To(MatchError(context.Canceled))
		Expect(selector.Err()).ToNot(HaveOccurred())
	})

	It("should order and clamp brushed positions", func() {
		reader.EXPECT().Detail(gomock.Any(), 0.0, 30.0).
			Return([]*tracing.Instruction{}, nil)
		handler.EXPECT().Render(tracing.TimeRange{Start: 0, End: 30}, gomock.Any())

		r := selector.Brush(ctx, 400, -10)

		Expect(r).To(Equal(tracing.TimeRange{Start: 0, End: 30}))
		Expect(selector.Wait()).To(Succeed())
	})

	It("should only render the most recent selection", func() {
		started := make(chan struct{})
		release := make(chan struct{})
		var staleCtxErr error

		older := tracing.TimeRange{Start: 1, End: 2}
		newer := tracing.TimeRange{Start: 10, End: 20}
		newerInsts := sampleInsts()

		reader.EXPECT().Detail(gomock.Any(), 1.0, 2.0).
			DoAndReturn(func(ctx context.Context, _, _ float64) ([]*tracing.Instruction, error) {
				close(started)
				<-release
				staleCtxErr = ctx.Err()
				return sampleInsts(), nil
			})
		reader.EXPECT().Detail(gomock.Any(), 10.0, 20.0).Return(newerInsts, nil)
		handler.EXPECT().Render(newer, newerInsts).Return(nil)

		selector.Select(ctx, older)
		<-started
		selector.Select(ctx, newer)
		close(release)
		Expect(selector.Wait()).To(Succeed())

		Expect(staleCtxErr).To(MatchError(context.Canceled))
		current, _ := selector.Current()
		Expect(current).To(Equal(newer))
	})

	It("should keep the previous view when a fetch fails", func() {
		reader.EXPECT().Detail(gomock.Any(), 1.0, 2.0).
			Return(nil, errors.New("timeout"))

		selector.Select(ctx, tracing.TimeRange{Start: 1, End: 2})

		Expect(selector.Wait()).To(MatchError("timeout"))
		Expect(selector.Err()).To(MatchError("timeout"))
	})

	It("should not render a batch with an empty instruction", func() {
		reader.EXPECT().Detail(gomock.Any(), 1.0, 2.0).
			Return([]*tracing.Instruction{{ID: 4}}, nil)

		selector.Select(ctx, tracing.TimeRange{Start: 1, End: 2})

		err := selector.Wait()
		var emptyErr *tracing.EmptyInstructionError
		Expect(errors.As(err, &emptyErr)).To(BeTrue())
	})

	It("should clear the error after a successful fetch", func() {
		reader.EXPECT().Detail(gomock.Any(), 1.0, 2.0).
			Return(nil, errors.New("timeout"))
		selector.Select(ctx, tracing.TimeRange{Start: 1, End: 2})
		Expect(selector.Wait()).ToNot(Succeed())

		reader.EXPECT().Detail(gomock.Any(), 1.0, 2.0).
			Return([]*tracing.Instruction{}, nil)
		handler.EXPECT().Render(gomock.Any(), gomock.Any()).Return(nil)
		selector.Select(ctx, tracing.TimeRange{Start: 1, End: 2})

		Expect(selector.Wait()).To(Succeed())
	})
})
