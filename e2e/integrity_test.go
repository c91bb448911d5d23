package e2e_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"ids-go/internal/ids"
)

func post(path string) (*http.Response, []byte) {
	res, err := http.Post(url+path, "application/json", nil)
	Expect(err).ToNot(HaveOccurred())
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	Expect(err).ToNot(HaveOccurred())
	return res, body
}

func get(path string) (*http.Response, []byte) {
	res, err := http.Get(url + path)
	Expect(err).ToNot(HaveOccurred())
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	Expect(err).ToNot(HaveOccurred())
	return res, body
}

var _ = Describe("Integrity", func() {
	var (
		built  *ids.Snapshot
		report ids.Report
	)

	Context("before any baseline exists", func() {
		It("should refuse to check with 409", func() {
			res, body := post("/check")
			Expect(res.StatusCode).To(Equal(http.StatusConflict))
			Expect(string(body)).To(ContainSubstring("ids build"))
		})
	})

	Context("building the baseline", func() {
		It("should fingerprint the configured files and directories", func() {
			var err error
			built, err = idsApp.Build(context.Background(), false)
			Expect(err).ToNot(HaveOccurred())

			Expect(built.Paths()).To(Equal([]string{
				filepath.Join(watched, "app.conf"),
				filepath.Join(watched, "conf.d", "extra.conf"),
				helloPath,
			}))
			Expect(built.Files[helloPath].SHA256).To(Equal("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"))
			Expect(built.Files[helloPath].Size).To(Equal("5"))
		})
		It("should persist the baseline with restrictive permissions", func() {
			info, err := os.Stat(cfg.Baseline.Path)
			Expect(err).ToNot(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0640)))
		})
		It("should push an encrypted copy to the mirror", func() {
			data, err := os.ReadFile(filepath.Join(baseDir, "mirror", "e2e-host.baseline"))
			Expect(err).ToNot(HaveOccurred())
			_, err = ids.DecodeSnapshot(data)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("checking an untouched host", func() {
		It("should report ok", func() {
			res, body := post("/check")
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			report = ids.Report{}
			Expect(json.Unmarshal(body, &report)).To(Succeed())
			Expect(report.State).To(Equal(ids.StateOK))
			Expect(report.Changes).To(BeEmpty())
		})
	})

	Context("after appending one byte to a monitored file", func() {
		It("should report exactly that file as divergent", func() {
			f, err := os.OpenFile(helloPath, os.O_APPEND|os.O_WRONLY, 0)
			Expect(err).ToNot(HaveOccurred())
			_, err = f.WriteString("!")
			Expect(err).ToNot(HaveOccurred())
			Expect(f.Close()).To(Succeed())

			res, body := post("/check")
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			report = ids.Report{}
			Expect(json.Unmarshal(body, &report)).To(Succeed())
			Expect(report.State).To(Equal(ids.StateDivergent))
			Expect(report.Changes).To(HaveLen(1))
			Expect(report.Changes).To(HaveKey(helloPath))

			change := report.Changes[helloPath]
			Expect(change.Current.SHA256).ToNot(Equal(change.Expected.SHA256))
			Expect(change.Current.Size).To(Equal("6"))
			Expect(change.Expected.DiffFields(change.Current)).To(ContainElements("sha256", "size", "last_modified"))
		})
	})

	Context("after deleting a monitored file", func() {
		It("should report it with an absent current record", func() {
			Expect(os.Remove(filepath.Join(watched, "conf.d", "extra.conf"))).To(Succeed())

			res, body := post("/check")
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			report = ids.Report{}
			Expect(json.Unmarshal(body, &report)).To(Succeed())
			Expect(report.Changes).To(HaveLen(2))
			deleted := report.Changes[filepath.Join(watched, "conf.d", "extra.conf")]
			Expect(deleted).ToNot(BeNil())
			Expect(deleted.Current).To(BeNil())
			Expect(deleted.Error).ToNot(BeEmpty())
		})
	})

	Context("browsing the report history", func() {
		It("should list every check newest first", func() {
			res, body := get("/reports")
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			var reports []ids.Report
			Expect(json.Unmarshal(body, &reports)).To(Succeed())
			Expect(reports).To(HaveLen(3))
			Expect(reports[0].ID).To(BeNumerically(">", reports[1].ID))
			Expect(reports[2].State).To(Equal(ids.StateOK))
		})
		It("should return one report by id", func() {
			res, body := get("/reports/" + strconv.FormatInt(report.ID, 10))
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			var got ids.Report
			Expect(json.Unmarshal(body, &got)).To(Succeed())
			Expect(got.UUID).To(Equal(report.UUID))
		})
		It("should return 404 for an unknown report", func() {
			res, body := get("/reports/999999")
			Expect(res.StatusCode).To(Equal(http.StatusNotFound))
			Expect(string(body)).To(MatchJSON(`{"error":"Report not found"}`))
		})
	})

	Context("restoring the baseline from the mirror", func() {
		It("should recover a tampered baseline", func() {
			Expect(os.WriteFile(cfg.Baseline.Path, []byte("{}"), 0640)).To(Succeed())
			_, err := idsApp.Baseline()
			Expect(err).To(MatchError(ContainSubstring("well-formed")))

			pulled, err := idsApp.PullBaseline("", false)
			Expect(err).ToNot(HaveOccurred())
			Expect(pulled.BuildTime).To(Equal(built.BuildTime))
			Expect(pulled.Files).To(Equal(built.Files))
		})
	})

	Context("health", func() {
		It("should report alive", func() {
			res, body := get("/healthz")
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(MatchJSON(`{"alive":true}`))
		})
	})
})
