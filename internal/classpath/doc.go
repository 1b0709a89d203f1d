// Package classpath resolves classpath specifications into isolated,
// read-only class scopes.
//
// A [Spec] is the ordered list of locations a build asked for, written in the
// platform path-list syntax ("a.jar:lib/b.zip:classes" on Unix). Opening a
// spec produces a [Scope]: one filesystem layer per location that exists,
// consulted in declaration order. Directories are served directly, zip
// archives (.jar, .zip) are read in place, and tar archives (.tar, .tar.gz,
// .tgz) are unpacked into a private temporary directory that is removed when
// the scope is closed.
//
// Classes are addressed by dotted names. The class "com.example.Main" is the
// file "com/example/Main.sh" in the first layer that contains it. A scope
// never falls back to the host filesystem, so two scopes opened from
// different specs cannot see each other's classes even when the class names
// collide.
//
// Example usage:
//
//	spec, err := classpath.Parse("/libs/app.jar:/libs/extra")
//	if err != nil {
//	    return err
//	}
//
//	scope, err := classpath.Open(spec)
//	if err != nil {
//	    return err
//	}
//	defer scope.Close()
//
//	class, err := scope.Lookup("com.example.Main")
package classpath
