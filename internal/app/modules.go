package app

import (
	"github.com/vk/modkit/internal/manifest"
	"github.com/vk/modkit/modules/clock"
	"github.com/vk/modkit/modules/reporter"
	"github.com/vk/modkit/modules/sysinfo"
)

// BuiltinCatalog lists every module compiled into the modkit binary,
// keyed by its manifest name.
func BuiltinCatalog() *manifest.Catalog {
	cat := manifest.NewCatalog()
	cat.Register("sysinfo", sysinfo.New)
	cat.Register("clock", clock.New)
	cat.Register("reporter", reporter.New)
	return cat
}
