package cli

import (
	"context"
	"fmt"

	"github.com/tackhq/tackd/internal"
)

// Represents the 'tackd version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}
