// Package cache keeps execution contexts warm between invocations.
//
// A [Cache] maps each build to at most one live [Context], the pairing of a
// classpath scope with the entry point loaded from it. Resolving the same
// build and classpath again returns the same context without reloading;
// resolving a build with a different classpath retires the old context and
// loads a new one. Concurrent resolutions of a key that is not loaded yet
// share a single load.
//
// Contexts are reference counted. [Cache.Resolve] returns an acquired
// context and the caller must call [Context.Release] when its invocation
// returns. Retiring a context, whether through invalidation, a classpath
// change, idle eviction or the capacity bound, only marks it; the entry
// point is closed once the last holder releases it. A context in use is
// never closed.
//
//	c := cache.New(&loader.ScriptLoader{}, cache.Options{MaxContexts: 32})
//	defer c.Close()
//
//	ctx, err := c.Resolve(context.Background(), "/tmp/build1", cp)
//	if err != nil {
//		return err
//	}
//	defer ctx.Release()
//	code, err := ctx.EntryPoint().Run(...)
package cache
