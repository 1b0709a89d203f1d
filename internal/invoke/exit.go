package invoke

// Panic value carrying an exit request.
type exitRequest struct {
	code int
}

// Ends the current invocation with the given exit code.
//
// It stands in for os.Exit in Go entry points: instead of terminating the
// process it unwinds the invocation, which then reports code as its exit
// status. It must be called from the goroutine running the entry point.
func Exit(code int) {
	panic(exitRequest{code: code})
}
