//go:build !unix

package agent

import "os/exec"

// Platforms without process groups fall back to the default
// CommandContext kill of the direct child only.
func setProcAttr(cmd *exec.Cmd) {}
