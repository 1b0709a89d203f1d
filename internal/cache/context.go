package cache

import (
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/tackhq/tackd/internal/classpath"
	"github.com/tackhq/tackd/internal/loader"
)

// Execution context of one build: a loaded entry point and the classpath it
// was loaded from.
//
// The fields below the cache pointer are guarded by the owning cache's
// mutex.
type Context struct {
	id    digest.Digest
	build loader.BuildID
	cp    classpath.Spec
	ep    loader.EntryPoint
	cache *Cache

	refs     int       // In-flight holders.
	retired  bool      // Close once refs drops to zero.
	lastUsed time.Time // Last acquire or release.
}

func newContext(c *Cache, build loader.BuildID, cp classpath.Spec, ep loader.EntryPoint) *Context {
	return &Context{
		id:       contextID(build, cp),
		build:    build,
		cp:       cp,
		ep:       ep,
		cache:    c,
		lastUsed: c.now(),
	}
}

// Identifies a context by its build and classpath.
func contextID(build loader.BuildID, cp classpath.Spec) digest.Digest {
	return digest.FromString(string(build) + "\x00" + cp.Digest().String())
}

// Returns the content-addressed context identifier.
func (x *Context) ID() digest.Digest { return x.id }

// Returns the build the context belongs to.
func (x *Context) BuildID() loader.BuildID { return x.build }

// Returns the classpath the context was loaded from.
func (x *Context) Classpath() classpath.Spec { return x.cp }

// Returns the loaded entry point.
func (x *Context) EntryPoint() loader.EntryPoint { return x.ep }

// Returns the context to the cache. Each successful [Cache.Resolve] must be
// paired with exactly one Release.
func (x *Context) Release() {
	x.cache.release(x)
}
