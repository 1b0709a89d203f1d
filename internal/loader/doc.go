// Package loader turns a classpath and a build directory into a runnable
// entry point.
//
// The [Loader] interface is the seam between the context cache and whatever
// produces entry points. [ScriptLoader] is the production implementation: it
// opens an isolated [classpath.Scope], locates the configured main class,
// checks that the class declares exactly one top-level "main" function, and
// runs the class body once as its static initializer inside a private shell
// interpreter. The interpreter is owned by the returned [EntryPoint] and is
// never shared with another load, so two builds loading classes with the same
// name from different classpaths cannot observe each other's state.
//
// Each [EntryPoint.Run] call executes main "$@" in a copy-on-write subshell of
// the initialized interpreter, with the caller's streams and the argument
// vector passed as-is. A call to the "exit" builtin ends the invocation with
// that status instead of terminating the daemon.
//
// Inside a class, other classes on the same classpath can be imported with
//
//	source classpath:com/example/Util.sh
//
// which reads from the scope, never from the host filesystem.
//
// Go code can provide entry points directly through [Func] and [LoaderFunc].
package loader
