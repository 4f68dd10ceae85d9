package regdebug

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Session", func() {
	var s *Session

	BeforeEach(func() {
		s = makeSession(3)
	})

	Context("when importing a trace", func() {
		It("should reset the session", func() {
			s.AddTag("s0", 1, "loop counter")
			Expect(s.ToggleValidated(2)).To(Succeed())
			s.GoToPage(2)

			Expect(s.ImportTrace([]RegisterSnapshot{
				makePage(0x10, 1, 2),
				makePage(0x14, 1, 2),
			})).To(Succeed())

			Expect(s.NumPages()).To(Equal(2))
			Expect(s.CurrentPage()).To(Equal(0))
			Expect(s.Validated()).To(Equal([]bool{false, false}))
			Expect(s.TaggedRegisters()).To(BeEmpty())
			Expect(s.Unsaved()).To(BeFalse())
		})

		It("should keep the old session if the shape is wrong", func() {
			bad := makePage(0x10, 1)

			err := s.ImportTrace([]RegisterSnapshot{makePage(0x10, 1, 2), bad})

			var schemaErr *SchemaError
			Expect(errors.As(err, &schemaErr)).To(BeTrue())
			Expect(s.NumPages()).To(Equal(3))
		})

		It("should import a raw trace", func() {
			raw, err := json.Marshal([]RegisterSnapshot{makePage(0x10, 5)})
			Expect(err).ToNot(HaveOccurred())

			Expect(s.ImportRawTrace(bytes.NewReader(raw))).To(Succeed())

			Expect(s.NumPages()).To(Equal(1))
			page, err := s.Page(0)
			Expect(err).ToNot(HaveOccurred())
			Expect(page.SGPRs).To(Equal([]uint32{5}))
			Expect(s.NumSGPRs()).To(Equal(1))
			Expect(s.NumVGPRs()).To(Equal(2))
		})
	})

	Context("when moving through pages", func() {
		It("should clamp the page", func() {
			Expect(s.GoToPage(1)).To(Equal(1))
			Expect(s.GoToPage(5)).To(Equal(2))
			Expect(s.CurrentPage()).To(Equal(2))
			Expect(s.GoToPage(-3)).To(Equal(0))
			Expect(s.CurrentPage()).To(Equal(0))
		})

		It("should stay on page 0 when empty", func() {
			empty := NewSession()

			Expect(empty.GoToPage(3)).To(Equal(0))
			Expect(empty.Loaded()).To(BeFalse())
			_, err := empty.Page(0)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when validating pages", func() {
		It("should toggle a single page", func() {
			Expect(s.ToggleValidated(1)).To(Succeed())

			Expect(s.Validated()).To(Equal([]bool{false, true, false}))
			Expect(s.IsValidated(1)).To(BeTrue())
			Expect(s.Unsaved()).To(BeTrue())

			Expect(s.ToggleValidated(1)).To(Succeed())
			Expect(s.IsValidated(1)).To(BeFalse())
		})

		It("should set a flag", func() {
			Expect(s.SetValidated(2, true)).To(Succeed())
			Expect(s.SetValidated(2, true)).To(Succeed())

			Expect(s.Validated()).To(Equal([]bool{false, false, true}))
		})

		It("should refuse pages out of range", func() {
			Expect(s.ToggleValidated(3)).ToNot(Succeed())
			Expect(s.SetValidated(-1, true)).ToNot(Succeed())
			Expect(s.IsValidated(7)).To(BeFalse())
		})

		It("should report the progress", func() {
			Expect(s.ToggleValidated(1)).To(Succeed())
			s.GoToPage(1)

			p := s.Progress()

			Expect(p.Total).To(Equal(3))
			Expect(p.Finished).To(Equal(1))
			Expect(p.Remaining()).To(Equal(2))
			Expect(p.Current).To(Equal(1))
			Expect(p.Segments).To(Equal([]ProgressSegment{
				{},
				{Validated: true, Current: true},
				{},
			}))
		})
	})

	Context("when tagging registers", func() {
		It("should return the latest tag at or before a page", func() {
			s.AddTag("s0", 2, "late")
			s.AddTag("s0", 0, "early")

			Expect(s.Tags("s0")).To(Equal([]Tag{
				{Time: 0, Content: "early"},
				{Time: 2, Content: "late"},
			}))
			Expect(s.LookupTag("s0", 0)).To(Equal("early"))
			Expect(s.LookupTag("s0", 1)).To(Equal("early"))
			Expect(s.LookupTag("s0", 2)).To(Equal("late"))
			Expect(s.LookupTag("s0", 9)).To(Equal("late"))
			Expect(s.Unsaved()).To(BeTrue())
		})

		It("should return nothing before the first tag", func() {
			s.AddTag("v1", 1, "address")

			Expect(s.LookupTag("v1", 0)).To(BeEmpty())
			Expect(s.LookupTag("s5", 2)).To(BeEmpty())
		})

		It("should let the last tag of a page win", func() {
			s.AddTag("s1", 1, "first")
			s.AddTag("s1", 2, "other")
			s.AddTag("s1", 1, "second")

			Expect(s.Tags("s1")).To(Equal([]Tag{
				{Time: 1, Content: "first"},
				{Time: 1, Content: "second"},
				{Time: 2, Content: "other"},
			}))
			Expect(s.LookupTag("s1", 1)).To(Equal("second"))
		})

		It("should know the registers of the session", func() {
			Expect(s.HasRegister("s0")).To(BeTrue())
			Expect(s.HasRegister("s1")).To(BeTrue())
			Expect(s.HasRegister("s2")).To(BeFalse())
			Expect(s.HasRegister("v1")).To(BeTrue())
			Expect(s.HasRegister("v2")).To(BeFalse())
			Expect(s.HasRegister("s01")).To(BeFalse())
			Expect(s.HasRegister("x0")).To(BeFalse())
			Expect(s.HasRegister("s")).To(BeFalse())
			Expect(s.HasRegister("s-1")).To(BeFalse())
		})
	})

	Context("when saving and loading", func() {
		It("should restore the same session", func() {
			s.AddTag("s0", 1, "counter")
			s.AddTag("v1", 0, "base")
			Expect(s.ToggleValidated(1)).To(Succeed())
			s.GoToPage(2)

			var buf bytes.Buffer
			Expect(s.Serialize(&buf)).To(Succeed())
			Expect(s.Unsaved()).To(BeFalse())

			loaded := NewSession()
			Expect(loaded.Deserialize(&buf)).To(Succeed())

			Expect(loaded.CurrentPage()).To(Equal(2))
			Expect(loaded.Validated()).To(Equal(s.Validated()))
			Expect(loaded.TaggedRegisters()).To(Equal([]string{"s0", "v1"}))
			Expect(loaded.Tags("s0")).To(Equal(s.Tags("s0")))
			Expect(loaded.Tags("v1")).To(Equal(s.Tags("v1")))
			for i := 0; i < s.NumPages(); i++ {
				Expect(loaded.Page(i)).To(Equal(s.pages[i]))
			}
			Expect(loaded.Unsaved()).To(BeFalse())
		})

		It("should restore a session without registers", func() {
			Expect(s.ImportTrace([]RegisterSnapshot{
				{Inst: "s_nop"},
				{Inst: "s_endpgm"},
			})).To(Succeed())

			var buf bytes.Buffer
			Expect(s.Serialize(&buf)).To(Succeed())
			Expect(buf.String()).ToNot(ContainSubstring("null"))

			loaded := NewSession()
			Expect(loaded.Deserialize(&buf)).To(Succeed())

			Expect(loaded.NumPages()).To(Equal(2))
			Expect(loaded.NumSGPRs()).To(Equal(0))
			Expect(loaded.NumVGPRs()).To(Equal(0))
			for i := 0; i < s.NumPages(); i++ {
				Expect(loaded.Page(i)).To(Equal(s.pages[i]))
			}
		})

		It("should write the saved session layout", func() {
			var buf bytes.Buffer
			Expect(s.Serialize(&buf)).To(Succeed())

			var fields map[string]json.RawMessage
			Expect(json.Unmarshal(buf.Bytes(), &fields)).To(Succeed())
			Expect(fields).To(HaveLen(4))
			Expect(fields).To(HaveKey("currentPage"))
			Expect(fields).To(HaveKey("data"))
			Expect(fields).To(HaveKey("tags"))
			Expect(fields).To(HaveKey("validated"))
		})

		It("should accept pages as the name of the data", func() {
			var buf bytes.Buffer
			Expect(s.Serialize(&buf)).To(Succeed())
			renamed := strings.Replace(buf.String(), `"data"`, `"pages"`, 1)
			renamed = strings.Replace(renamed, `{`, `{"unsaved":true,`, 1)

			loaded := NewSession()
			Expect(loaded.Deserialize(strings.NewReader(renamed))).To(Succeed())

			Expect(loaded.NumPages()).To(Equal(3))
			Expect(loaded.Unsaved()).To(BeFalse())
		})

		It("should sort tags of an older save", func() {
			saved := savedFor(s, `{"s0":[{"time":2,"content":"b"},` +
				`{"time":0,"content":"a"}]}`, `[false,false,false]`, 0)

			loaded := NewSession()
			Expect(loaded.Deserialize(strings.NewReader(saved))).To(Succeed())

			Expect(loaded.LookupTag("s0", 1)).To(Equal("a"))
		})

		DescribeTable("should refuse a malformed session and keep the old one",
			func(blob string) {
				before := s.NumPages()

				err := s.Deserialize(strings.NewReader(blob))

				var schemaErr *SchemaError
				Expect(errors.As(err, &schemaErr)).To(BeTrue())
				Expect(s.NumPages()).To(Equal(before))
			},
			Entry("not an object", `[1, 2]`),
			Entry("missing fields", `{"currentPage": 0}`),
			Entry("unknown field", `{"currentPage":0,"data":[],`+
				`"tags":{},"validated":[],"extra":1}`),
		)

		It("should refuse validation flags of the wrong length", func() {
			blob := savedFor(s, `{}`, `[false,true]`, 0)

			err := s.Deserialize(strings.NewReader(blob))

			var schemaErr *SchemaError
			Expect(errors.As(err, &schemaErr)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("2 validation flags for 3 pages"))
		})

		It("should refuse a current page out of range", func() {
			blob := savedFor(s, `{}`, `[false,false,false]`, 3)

			Expect(s.Deserialize(strings.NewReader(blob))).ToNot(Succeed())
		})

		It("should refuse both data and pages", func() {
			pages, err := json.Marshal(s.pages)
			Expect(err).ToNot(HaveOccurred())
			blob := `{"currentPage":0,"data":` + string(pages) +
				`,"pages":` + string(pages) +
				`,"tags":{},"validated":[false,false,false]}`

			Expect(s.Deserialize(strings.NewReader(blob))).ToNot(Succeed())
		})
	})
})

func savedFor(s *Session, tags, validated string, currentPage int) string {
	pages, err := json.Marshal(s.pages)
	Expect(err).ToNot(HaveOccurred())

	current, err := json.Marshal(currentPage)
	Expect(err).ToNot(HaveOccurred())

	return `{"currentPage":` + string(current) +
		`,"data":` + string(pages) +
		`,"tags":` + tags +
		`,"validated":` + validated + `}`
}
