package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/hierarchy"
	"github.com/sarchlab/cachesim/mem/mem"
	"github.com/sarchlab/cachesim/mem/trace"
)

type recordedAccess struct {
	Seq     uint64
	Op      string
	Address string
	DCHit   bool
}

var _ = Describe("Builder", func() {
	It("should require a controller", func() {
		_, err := MakeBuilder().Build()

		Expect(err).To(HaveOccurred())
	})

	It("should refuse a monitor port without monitoring", func() {
		_, err := MakeBuilder().
			WithController(buildDCOnly()).
			WithMonitorPort(8080).
			Build()

		Expect(err).To(MatchError(ContainSubstring("monitor port")))
	})

	It("should refuse an output file without recording", func() {
		_, err := MakeBuilder().
			WithController(buildDCOnly()).
			WithOutputFileName("out").
			Build()

		Expect(err).To(MatchError(ContainSubstring("output file")))
	})

	It("should build a bare simulation", func() {
		s, err := MakeBuilder().WithController(buildDCOnly()).Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(s.ID()).NotTo(BeEmpty())
		Expect(s.GetDataRecorder()).To(BeNil())
		Expect(s.GetMonitor()).To(BeNil())
		Expect(s.MonitorURL()).To(BeEmpty())
		Expect(s.Runner().Controller()).To(BeIdenticalTo(s.Controller()))
		Expect(s.Terminate()).To(Succeed())
	})
})

var _ = Describe("Simulation", func() {
	var source *RecordSlice

	BeforeEach(func() {
		source = NewRecordSlice(
			mem.ReadReq(0x0),
			mem.ReadReq(0x4),
			mem.WriteReq(0x40),
		)
	})

	It("should log every access", func() {
		buf := new(bytes.Buffer)
		accessLog := logrus.New()
		accessLog.SetOutput(buf)
		accessLog.SetFormatter(&logrus.JSONFormatter{})

		s, err := MakeBuilder().
			WithController(buildDCOnly()).
			WithAccessLog(accessLog).
			Build()
		Expect(err).NotTo(HaveOccurred())

		_, err = s.Run(source, nil)
		Expect(err).NotTo(HaveOccurred())

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		Expect(lines).To(HaveLen(3))

		entry := map[string]any{}
		Expect(json.Unmarshal(lines[1], &entry)).To(Succeed())
		Expect(entry["op"]).To(Equal("R"))
		Expect(entry["DC"]).To(Equal("hit"))
	})

	It("should record accesses into the database", func() {
		path := filepath.Join(GinkgoT().TempDir(), "run")

		s, err := MakeBuilder().
			WithController(buildDCOnly()).
			WithDataRecording().
			WithOutputFileName(path).
			WithDrain(true).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.GetDataRecorder()).NotTo(BeNil())

		s.RecordExecInfo("Config", "test")

		stats, err := s.Run(source, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.WriteBacks(hierarchy.DC)).To(Equal(uint64(1)))
		Expect(s.Terminate()).To(Succeed())

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		ctx := context.Background()

		tables, err := reader.ListTables(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(ContainElements(
			trace.AccessTable, trace.EventTable, datarecording.ExecInfoTable))

		reader.MapTable(trace.AccessTable, recordedAccess{})
		rows, total, err := reader.Query(ctx, trace.AccessTable,
			datarecording.QueryParams{OrderBy: "Seq"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(3))

		second := rows[1].(*recordedAccess)
		Expect(second.Seq).To(Equal(uint64(2)))
		Expect(second.Address).To(Equal("0x4"))
		Expect(second.DCHit).To(BeTrue())

		reader.MapTable(datarecording.ExecInfoTable, datarecording.ExecInfo{})
		infos, _, err := reader.Query(ctx, datarecording.ExecInfoTable,
			datarecording.QueryParams{Where: "Property = ?", Args: []any{"Config"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(infos).To(HaveLen(1))
		Expect(infos[0].(*datarecording.ExecInfo).Value).To(Equal("test"))
	})

	It("should serve statistics while monitoring", func() {
		s, err := MakeBuilder().
			WithController(buildDCOnly()).
			WithMonitoring().
			WithTotalAccesses(uint64(source.Len())).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.MonitorURL()).To(HavePrefix("http://localhost:"))

		_, err = s.Run(source, nil)
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.Get(s.MonitorURL() + "/api/stats")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body := map[string]any{}
		Expect(json.NewDecoder(rsp.Body).Decode(&body)).To(Succeed())
		Expect(body["records"]).To(BeNumerically("==", 3))

		Expect(s.Terminate()).To(Succeed())
	})
})
