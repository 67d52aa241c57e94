// Package version provides version information for zeekagent binaries.
package version

import (
	"fmt"
)

const (
	// Name of the project.
	Name string = "ZeekAgent"
	// Version of ZeekAgent.
	Version string = "1.2.0"
	// Additional information
	Additional string = "Have a lot of fun!"
)

// String returns a plain text representation of the version information.
func String() string {
	return fmt.Sprintf("%s %v %s", Name, Version, Additional)
}
