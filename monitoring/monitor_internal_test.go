package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ptsim/mem/vm"
)

var _ = Describe("Monitor", func() {
	var (
		mockCtrl *gomock.Controller
		manager  *vm.Manager
		m        *Monitor
		handler  http.Handler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		manager = vm.NewManager()

		m = NewMonitor()
		m.RegisterManager(manager)
		handler = m.Handler()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

		return rec
	}

	getJSON := func(url string, v any) {
		rec := get(url)

		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	It("should replace reserved port numbers", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(32776)
		Expect(m.portNumber).To(Equal(32776))
	})

	It("should report the free map", func() {
		_, err := manager.NewProcess(0, 2)
		Expect(err).NotTo(HaveOccurred())

		var rsp freeMapRsp
		getJSON("/api/freemap", &rsp)

		Expect(rsp.Pages).To(HaveLen(vm.PageCount))
		Expect(rsp.Allocated).To(Equal(4))
		Expect(rsp.Pages[:5]).To(Equal([]bool{true, true, true, true, false}))
	})

	It("should list processes", func() {
		_, _ = manager.NewProcess(3, 1)
		_, _ = manager.NewProcess(7, 4)

		var rsp []processRsp
		getJSON("/api/processes", &rsp)

		Expect(rsp).To(Equal([]processRsp{
			{PID: 3, PageTable: 1, Pages: 1},
			{PID: 7, PageTable: 3, Pages: 4},
		}))
	})

	It("should show a page table", func() {
		_, _ = manager.NewProcess(1, 2)

		var rsp []entryRsp
		getJSON("/api/pagetable/1", &rsp)

		Expect(rsp).To(Equal([]entryRsp{
			{Index: 0, Page: 2},
			{Index: 1, Page: 3},
		}))
	})

	It("should answer 404 for a missing process", func() {
		rec := get("/api/pagetable/5")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Body.String()).To(ContainSubstring("no such process"))
	})

	It("should answer 400 for a malformed process id", func() {
		rec := get("/api/pagetable/abc")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should translate addresses", func() {
		_, _ = manager.NewProcess(2, 1)

		var rsp translateRsp
		getJSON("/api/translate/2/0x2a", &rsp)

		Expect(rsp).To(Equal(translateRsp{
			PID:   2,
			VAddr: 0x2a,
			PAddr: 0x22a,
			Page:  2,
		}))
	})

	It("should answer 404 for unmapped addresses", func() {
		_, _ = manager.NewProcess(2, 1)

		rec := get("/api/translate/2/0x100")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Body.String()).To(ContainSubstring("unmapped page"))
	})

	It("should report a disabled TLB", func() {
		var rsp tlbRsp
		getJSON("/api/tlb", &rsp)

		Expect(rsp).To(Equal(tlbRsp{}))
	})

	It("should report TLB statistics", func() {
		stats := NewMockTLBStats(mockCtrl)
		stats.EXPECT().Stats().Return(uint64(5), uint64(2))
		m.RegisterTLB(stats)

		var rsp tlbRsp
		getJSON("/api/tlb", &rsp)

		Expect(rsp).To(Equal(tlbRsp{Enabled: true, Hits: 5, Misses: 2}))
	})

	It("should dump the manager", func() {
		rec := get("/api/manager")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should report the resources of the process", func() {
		var rsp resourceRsp
		getJSON("/api/resource", &rsp)

		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("commands", 10)
		bar.IncrementFinished(3)
		bar.IncrementTotal(2)

		var rsp []progressRsp
		getJSON("/api/progress", &rsp)

		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("commands"))
		Expect(rsp[0].Total).To(Equal(uint64(12)))
		Expect(rsp[0].Finished).To(Equal(uint64(3)))

		m.CompleteProgressBar(bar)
		getJSON("/api/progress", &rsp)

		Expect(rsp).To(BeEmpty())
	})

	It("should serve the index page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should start and stop the server", func() {
		m.StartServer()
		defer m.StopServer()

		rsp, err := http.Get(m.URL() + "/api/tlb")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
