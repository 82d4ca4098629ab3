package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/hierarchy"
	"github.com/sarchlab/cachesim/mem/mem"
)

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
		c *hierarchy.Controller
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.Router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		dc, err := cache.MakeBuilder().
			WithNumSets(4).
			WithWayAssociativity(1).
			WithBlockSize(16).
			Build("DC")
		Expect(err).NotTo(HaveOccurred())

		c, err = hierarchy.MakeBuilder().WithLevel(dc).Build()
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor()
		m.RegisterController(c, 3)
	})

	It("should ignore privileged port numbers", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should publish statistics from the hook", func() {
		c.Access(mem.ReadReq(0x0))
		c.Access(mem.ReadReq(0x4))
		c.Access(mem.WriteReq(0x40))

		rec := get("/api/stats")
		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := statsRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Records).To(Equal(uint64(3)))
		Expect(rsp.Writes).To(Equal(uint64(1)))
		Expect(rsp.Levels).To(HaveLen(1))
		Expect(rsp.Levels[0].Name).To(Equal("DC"))
		Expect(rsp.Levels[0].Hits).To(Equal(uint64(1)))
		Expect(rsp.Levels[0].Misses).To(Equal(uint64(2)))
		Expect(rsp.MemoryReads).To(Equal(uint64(2)))
	})

	It("should count finished accesses", func() {
		c.Access(mem.ReadReq(0x0))
		c.Access(mem.ReadReq(0x4))

		rec := get("/api/progress")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var bars []progressBarRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("Accesses"))
		Expect(bars[0].Total).To(Equal(uint64(3)))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(rec.Body.String()).NotTo(ContainSubstring("in_progress"))
	})

	It("should complete progress bars", func() {
		bar := m.CreateProgressBar("Drain", 0)
		Expect(m.progressBars).To(HaveLen(2))

		m.CompleteProgressBar(bar)

		Expect(m.progressBars).To(HaveLen(1))
		Expect(m.progressBars[0].Name).To(Equal("Accesses"))
	})

	It("should list levels", func() {
		rec := get("/api/list_levels")

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"DC"}))
	})

	It("should describe a level", func() {
		rec := get("/api/level/DC")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for an unknown level", func() {
		rec := get("/api/level/L3")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should report resource usage", func() {
		rec := get("/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := resourceRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the web page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("<!DOCTYPE html>"))
	})
})
