package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LRUVictimFinder", func() {
	var (
		tags   TagArray
		finder *LRUVictimFinder
	)

	BeforeEach(func() {
		tags = NewTagArray(1, 4)
		finder = NewLRUVictimFinder()
	})

	fill := func(wayID int, tag uint64) {
		block := tags.GetSet(0).Blocks[wayID]
		block.Tag = tag
		block.IsValid = true
		tags.Update(block)
		tags.Visit(block)
	}

	It("should pick the lowest invalid way in an empty set", func() {
		victim, ok := finder.FindVictim(tags, 0)

		Expect(ok).To(BeTrue())
		Expect(victim.WayID).To(Equal(0))
		Expect(victim.IsValid).To(BeFalse())
	})

	It("should prefer invalid blocks over valid ones", func() {
		fill(0, 0x10)
		fill(1, 0x11)

		victim, ok := finder.FindVictim(tags, 0)

		Expect(ok).To(BeTrue())
		Expect(victim.WayID).To(Equal(2))
	})

	It("should evict way 0 when the set was filled in index order", func() {
		for i := 0; i < 4; i++ {
			fill(i, uint64(0x20+i))
		}

		victim, ok := finder.FindVictim(tags, 0)

		Expect(ok).To(BeTrue())
		Expect(victim.WayID).To(Equal(0))
		Expect(victim.Tag).To(Equal(uint64(0x20)))
	})

	It("should evict the least recently visited block", func() {
		for i := 0; i < 4; i++ {
			fill(i, uint64(0x20+i))
		}
		tags.Visit(tags.GetSet(0).Blocks[0])
		tags.Visit(tags.GetSet(0).Blocks[1])

		victim, _ := finder.FindVictim(tags, 0)

		Expect(victim.WayID).To(Equal(2))
	})

	It("should report no victim for a set without ways", func() {
		empty := NewTagArray(1, 0)

		_, ok := finder.FindVictim(empty, 0)

		Expect(ok).To(BeFalse())
	})
})
