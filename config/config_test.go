package config_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/sarchlab/cachesim/config"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/hierarchy"
)

const legacyConfig = `Data TLB configuration
Number of sets: 2
Set size: 1

Page Table configuration
Number of virtual pages: 64
Number of physical pages: 4
Page size: 256

Data Cache configuration
Number of sets: 4
Set size: 1
Line size: 16
Write through/no write allocate: y

L2 Cache configuration
Number of sets: 16
Set size: 4
Line size: 16
Write through/no write allocate: n

Virtual addresses: n
TLB: n
L2 cache: y
`

const iniConfig = `
[dc]
sets = 8
ways = 2
block_size = 16
write_policy = write-through
allocate_policy = no-write-allocate
replacement = fifo

[l2]
size = 4096
ways = 4
block_size = 32
`

func writeFile(name, content string) string {
	path := filepath.Join(GinkgoT().TempDir(), name)
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

	return path
}

func configError(err error) *cache.ConfigurationError {
	var cerr *cache.ConfigurationError
	Expect(errors.As(err, &cerr)).To(BeTrue())

	return cerr
}

var _ = Describe("Default", func() {
	It("should be valid", func() {
		cfg := config.Default()

		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.L2Enabled).To(BeTrue())
		Expect(cfg.DC.Size()).To(Equal(uint64(64)))
		Expect(cfg.L2.Size()).To(Equal(uint64(1024)))
	})

	It("should build a two level hierarchy", func() {
		c, err := config.Default().BuildController(nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Levels()).To(HaveLen(2))

		l2, ok := c.Level(hierarchy.L2)
		Expect(ok).To(BeTrue())
		Expect(l2.Geometry().Ways).To(Equal(4))
	})

	It("should leave out a disabled L2", func() {
		cfg := config.Default()
		cfg.L2Enabled = false
		cfg.L2.NumSets = 3

		c, err := cfg.BuildController(nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Levels()).To(HaveLen(1))
	})
})

var _ = Describe("Validate", func() {
	It("should reject a set count that is not a power of two", func() {
		cfg := config.Default()
		cfg.DC.NumSets = 3

		cerr := configError(cfg.Validate())
		Expect(cerr.Level).To(Equal("DC"))
		Expect(cerr.Field).To(Equal("number of sets"))
	})

	It("should reject an L2 line smaller than the DC line", func() {
		cfg := config.Default()
		cfg.L2.BlockSize = 8

		cerr := configError(cfg.Validate())
		Expect(cerr.Level).To(Equal("L2"))
		Expect(cerr.Field).To(Equal("block size"))
	})
})

var _ = Describe("ParseLegacy", func() {
	It("should read the cache sections", func() {
		cfg, err := config.ParseLegacy(strings.NewReader(legacyConfig))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.DC).To(Equal(config.LevelConfig{
			NumSets:        4,
			Ways:           1,
			BlockSize:      16,
			WritePolicy:    cache.WriteThrough,
			AllocatePolicy: cache.NoWriteAllocate,
		}))
		Expect(cfg.L2.NumSets).To(Equal(uint64(16)))
		Expect(cfg.L2.Ways).To(Equal(4))
		Expect(cfg.L2.WritePolicy).To(Equal(cache.WriteBack))
		Expect(cfg.L2.AllocatePolicy).To(Equal(cache.WriteAllocate))
		Expect(cfg.L2Enabled).To(BeTrue())
	})

	It("should read the switches after the last cache section", func() {
		text := "Data Cache configuration\n" +
			"Number of sets: 8\n" +
			"Set size: 2\n" +
			"Line size: 16\n" +
			"Write through/no write allocate: n\n" +
			"Virtual addresses: n\n" +
			"TLB: n\n" +
			"L2 cache: n\n"

		cfg, err := config.ParseLegacy(strings.NewReader(text))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.DC.NumSets).To(Equal(uint64(8)))
		Expect(cfg.L2Enabled).To(BeFalse())
	})

	It("should disable L2", func() {
		text := strings.Replace(legacyConfig, "L2 cache: y", "L2 cache: n", 1)

		cfg, err := config.ParseLegacy(strings.NewReader(text))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.L2Enabled).To(BeFalse())
	})

	It("should refuse virtual addresses", func() {
		text := strings.Replace(legacyConfig,
			"Virtual addresses: n", "Virtual addresses: y", 1)

		_, err := config.ParseLegacy(strings.NewReader(text))

		Expect(configError(err).Field).To(Equal("virtual addresses"))
		Expect(err.Error()).To(ContainSubstring("line 22"))
	})

	It("should refuse the TLB", func() {
		text := strings.Replace(legacyConfig, "TLB: n", "TLB: y", 1)

		_, err := config.ParseLegacy(strings.NewReader(text))

		Expect(configError(err).Field).To(Equal("TLB"))
	})

	It("should report lines without a value", func() {
		_, err := config.ParseLegacy(strings.NewReader(
			"Data Cache configuration\nNumber of sets\n"))

		Expect(err).To(MatchError(ContainSubstring("line 2")))
	})

	It("should report bad numbers", func() {
		_, err := config.ParseLegacy(strings.NewReader(
			"Data Cache configuration\nLine size: sixteen\n"))

		Expect(configError(err).Field).To(Equal("block size"))
	})
})

var _ = Describe("ParseINI", func() {
	It("should read both levels", func() {
		cfg, err := config.ParseINI(strings.NewReader(iniConfig))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.DC).To(Equal(config.LevelConfig{
			NumSets:           8,
			Ways:              2,
			BlockSize:         16,
			WritePolicy:       cache.WriteThrough,
			AllocatePolicy:    cache.NoWriteAllocate,
			ReplacementPolicy: cache.FIFO,
		}))
		Expect(cfg.L2.NumSets).To(Equal(uint64(32)))
		Expect(cfg.L2.BlockSize).To(Equal(uint64(32)))
		Expect(cfg.L2Enabled).To(BeTrue())
	})

	It("should keep defaults for missing sections", func() {
		cfg, err := config.ParseINI(strings.NewReader("[l2]\nenabled = false\n"))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.DC).To(Equal(config.Default().DC))
		Expect(cfg.L2Enabled).To(BeFalse())
	})

	It("should reject unknown policies", func() {
		_, err := config.ParseINI(strings.NewReader(
			"[dc]\nwrite_policy = sometimes\n"))

		cerr := configError(err)
		Expect(cerr.Level).To(Equal("DC"))
		Expect(cerr.Field).To(Equal("write policy"))
	})

	It("should reject bad numbers", func() {
		_, err := config.ParseINI(strings.NewReader("[dc]\nways = many\n"))

		Expect(configError(err).Field).To(Equal("ways"))
	})
})

var _ = Describe("Load", func() {
	It("should detect the legacy format", func() {
		path := writeFile("trace.config", legacyConfig)

		cfg, err := config.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.DC.WritePolicy).To(Equal(cache.WriteThrough))
	})

	It("should read INI files", func() {
		path := writeFile("cachesim.ini", iniConfig)

		cfg, err := config.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.DC.ReplacementPolicy).To(Equal(cache.FIFO))
	})

	It("should read INI files without the extension", func() {
		path := writeFile("cachesim.conf", iniConfig)

		cfg, err := config.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.DC.NumSets).To(Equal(uint64(8)))
	})

	It("should validate what it loads", func() {
		path := writeFile("bad.ini", "[dc]\nsets = 6\n")

		_, err := config.Load(path)

		Expect(configError(err).Field).To(Equal("number of sets"))
	})

	It("should reject a level too large to simulate", func() {
		path := writeFile("huge.ini", "[dc]\nsets = 8796093022208\n")

		_, err := config.Load(path)

		Expect(configError(err).Level).To(Equal("DC"))
	})

	It("should fail on a missing file", func() {
		_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "none.ini"))

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadDotEnv", func() {
	It("should set variables that are not set yet", func() {
		Expect(os.Unsetenv(config.EnvLogLevel)).To(Succeed())
		DeferCleanup(os.Unsetenv, config.EnvLogLevel)

		path := writeFile(".env", config.EnvLogLevel+"=debug\n")

		Expect(config.LoadDotEnv(path)).To(Succeed())
		Expect(os.Getenv(config.EnvLogLevel)).To(Equal("debug"))
	})

	It("should skip missing files", func() {
		missing := filepath.Join(GinkgoT().TempDir(), ".env")

		Expect(config.LoadDotEnv(missing)).To(Succeed())
	})
})
