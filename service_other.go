//go:build !windows

package main

import "fmt"

// RunAsService always reports false outside Windows; systemd and friends
// run the binary in the foreground and stop it with SIGTERM.
func RunAsService() (bool, error) {
	return false, nil
}

// HandleServiceCommand prints usage for help and explains that the
// service verbs need Windows. Other arguments are not handled.
func HandleServiceCommand(args []string) bool {
	if len(args) < 2 {
		return false
	}
	switch {
	case isHelpCommand(args[1]):
		PrintServiceUsage()
		return true
	case serviceCommands[args[1]]:
		fmt.Printf("The %q command is only available on Windows. Use systemd or a container runtime elsewhere.\n", args[1])
		return true
	}
	return false
}
