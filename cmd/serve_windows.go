//go:build windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// No session detaching on Windows; the child keeps running after the parent exits.
func detachProcess(_ *exec.Cmd) {}

func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func sigTERM() syscall.Signal { return syscall.SIGTERM }

func sigKILL() syscall.Signal { return syscall.SIGKILL }
