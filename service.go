package main

import "fmt"

const serviceName = "PrognoseGenerator"

// serviceCommands are the management verbs accepted as the first argument.
var serviceCommands = map[string]bool{
	"install": true, "uninstall": true, "remove": true,
	"start": true, "stop": true, "restart": true, "status": true,
}

func isHelpCommand(arg string) bool {
	switch arg {
	case "help", "-h", "--help", "-help":
		return true
	}
	return false
}

// PrintServiceUsage prints the help text for the service commands.
func PrintServiceUsage() {
	fmt.Println("Prognose-Generator Service Management")
	fmt.Println()
	fmt.Printf("Usage: %s <command>\n", serviceName)
	fmt.Println()
	fmt.Println("Commands (Windows only):")
	fmt.Println("  install    Install the application as a Windows service")
	fmt.Println("  uninstall  Remove the Windows service (alias: remove)")
	fmt.Println("  start      Start the Windows service")
	fmt.Println("  stop       Stop the Windows service")
	fmt.Println("  restart    Restart the Windows service (stop then start)")
	fmt.Println("  status     Show the current service status")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Run without arguments to start the web server in the foreground.")
}
