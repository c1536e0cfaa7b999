//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package database

import "os/exec"

// killProcessGroup keeps exec's default of killing only the direct child.
func killProcessGroup(*exec.Cmd) {}
