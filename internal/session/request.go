package session

import (
	"fmt"
	"path/filepath"

	"github.com/tackhq/tackd/internal/classpath"
	"github.com/tackhq/tackd/internal/loader"
)

// Minimum number of request fields: program, classpath and build directory.
const minFields = 3

// One invocation request.
type Request struct {
	Program   string         // Caller's self-identification, not interpreted.
	Classpath classpath.Spec // Code visible to the invocation.
	BuildID   loader.BuildID // Isolation domain.
	Args      []string       // Argument vector handed to the entry point verbatim.
	Stdin     []byte         // Standard input of the entry point. Nil means none.
}

// Builds a request from its raw fields.
//
// Field 0 is the program identifier, field 1 the classpath in the platform
// path-list syntax, field 2 the build directory, and the rest the argument
// vector. Fewer than three fields, or an empty build directory, yield a
// [MalformedRequestError]. A classpath naming no location yields a
// [classpath.ResolutionError].
func ParseRequest(fields []string) (*Request, error) {
	if len(fields) < minFields {
		return nil, &MalformedRequestError{
			Reason: fmt.Sprintf("expected at least %d fields, got %d", minFields, len(fields)),
		}
	}
	if fields[2] == "" {
		return nil, &MalformedRequestError{Reason: "empty build directory"}
	}

	cp, err := classpath.Parse(fields[1])
	if err != nil {
		return nil, err
	}

	build, err := filepath.Abs(fields[2])
	if err != nil {
		return nil, &MalformedRequestError{Reason: fmt.Sprintf("build directory %q: %v", fields[2], err)}
	}

	return &Request{
		Program:   fields[0],
		Classpath: cp,
		BuildID:   loader.BuildID(build),
		Args:      append([]string{}, fields[minFields:]...),
	}, nil
}
