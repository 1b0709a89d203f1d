// Package metrics exposes daemon activity as Prometheus collectors.
//
// Collectors live on a private registry, so several daemons in one process
// (as in tests) never collide. Session counts and durations are recorded
// by the dispatcher through [Metrics.ObserveSession]. Cache counters are
// read from [cache.Stats] at scrape time rather than mirrored.
//
// The registry is served by [Metrics.Handler]:
//
//	m := metrics.New(contexts.Stats)
//	mux.Handle("/metrics", m.Handler())
//
// A nil *Metrics records nothing, so components can take one optionally.
package metrics
