// Package server is the tackd daemon.
//
// Clients connect to a Unix socket, write one JSON envelope terminated by a
// newline and read one envelope back; the connection then closes. The
// commands are invoke, invalidate, status and shutdown.
//
// An invoke is handed to a [session.Dispatcher]. The dispatcher resolves the
// build's execution context from a [cache.Cache] shared by every connection
// and runs the entry point inside the daemon. Contexts stay warm between
// invocations until they are invalidated, replaced by a different
// classpath, left idle past the configured timeout or pushed out by the
// capacity bound. Hanging up cancels the client's session.
//
// A typical embedding:
//
//	srv, err := server.New(server.Config{
//	    MainClass:   "com.example.Compiler",
//	    IdleTimeout: 30 * time.Minute,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//	srv.Wait()
package server
