// Package invoke runs loaded entry points as virtual processes.
//
// An invocation gets private standard streams and produces a [Result] shaped
// like the outcome of a child process: an exit code plus captured output.
// Nothing the entry point does can terminate the host. An explicit exit
// request becomes the exit code, and an uncaught panic or error becomes an
// [InvocationFailure] with a non-zero code.
//
//	var inv invoke.Invoker
//	res := inv.Run(ctx, ep, []string{"--version"}, nil)
//	os.Stdout.Write(res.Stdout)
//	os.Exit(int(res.ExitCode))
package invoke
