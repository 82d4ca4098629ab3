package sim

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/mock/gomock"
)

type stringItem string

func (s stringItem) String() string {
	return "item " + string(s)
}

var _ = ginkgo.Describe("HookableBase", func() {
	var (
		mockCtrl *gomock.Controller
		base     *HookableBase
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		base = NewHookableBase()
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.It("should invoke hooks in registration order", func() {
		pos := &HookPos{Name: "Test"}
		ctx := HookCtx{Domain: base, Pos: pos, Item: 1}

		h1 := NewMockHook(mockCtrl)
		h2 := NewMockHook(mockCtrl)
		gomock.InOrder(
			h1.EXPECT().Func(ctx),
			h2.EXPECT().Func(ctx),
		)

		base.AcceptHook(h1)
		base.AcceptHook(h2)
		base.InvokeHook(ctx)

		gomega.Expect(base.NumHooks()).To(gomega.Equal(2))
	})

	ginkgo.It("should accept plain functions", func() {
		called := 0
		base.AcceptHook(HookFunc(func(HookCtx) { called++ }))

		base.InvokeHook(HookCtx{})

		gomega.Expect(called).To(gomega.Equal(1))
	})
})

var _ = ginkgo.Describe("LogHook", func() {
	var (
		logger *logrus.Logger
		record *logtest.Hook
		hook   *LogHook
	)

	ginkgo.BeforeEach(func() {
		logger, record = logtest.NewNullLogger()
		hook = NewLogHook(logger)
	})

	ginkgo.It("should stay silent below its level", func() {
		logger.SetLevel(logrus.InfoLevel)

		hook.Func(HookCtx{Pos: &HookPos{Name: "Access"}})

		gomega.Expect(record.AllEntries()).To(gomega.BeEmpty())
	})

	ginkgo.It("should log the position and the item", func() {
		logger.SetLevel(logrus.DebugLevel)

		hook.Func(HookCtx{
			Pos:  &HookPos{Name: "Access"},
			Item: stringItem("a"),
		})

		entry := record.LastEntry()
		gomega.Expect(entry).NotTo(gomega.BeNil())
		gomega.Expect(entry.Level).To(gomega.Equal(logrus.DebugLevel))
		gomega.Expect(entry.Data).To(gomega.HaveKeyWithValue("pos", "Access"))
		gomega.Expect(entry.Data).To(gomega.HaveKeyWithValue("item", "item a"))
	})
})
