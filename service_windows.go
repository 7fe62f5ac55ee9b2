//go:build windows

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"
)

// Program adapts run to the Windows service lifecycle.
type Program struct {
	stop chan struct{}
	exit chan struct{}
	code int
}

// Start is called by the service manager; it must not block.
func (p *Program) Start(s service.Service) error {
	p.stop = make(chan struct{})
	p.exit = make(chan struct{})
	go func() {
		defer close(p.exit)
		p.code = run(p.stop)
	}()
	return nil
}

// Stop asks run for a graceful shutdown and waits for it.
func (p *Program) Stop(s service.Service) error {
	close(p.stop)
	select {
	case <-p.exit:
	case <-time.After(90 * time.Second):
		return fmt.Errorf("timeout waiting for service to stop")
	}
	if p.code != 0 {
		return fmt.Errorf("service exited with code %d", p.code)
	}
	return nil
}

// ServiceConfig returns the Windows service definition.
func ServiceConfig() *service.Config {
	return &service.Config{
		Name:        serviceName,
		DisplayName: "Prognose-Generator",
		Description: "Erstellt volkswirtschaftliche Prognosen für die Mittelfristplanung.",
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

func newService() (service.Service, error) {
	s, err := service.New(&Program{}, ServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

// RunAsService runs under the service manager. It returns false when the
// process was started interactively.
func RunAsService() (bool, error) {
	if service.Interactive() {
		return false, nil
	}
	s, err := newService()
	if err != nil {
		return false, err
	}
	if err := s.Run(); err != nil {
		return true, fmt.Errorf("service run failed: %w", err)
	}
	return true, nil
}

// HandleServiceCommand runs install, start and the other management
// verbs. It returns false when args hold no service command.
func HandleServiceCommand(args []string) bool {
	if len(args) < 2 {
		return false
	}
	cmd := args[1]
	if isHelpCommand(cmd) {
		PrintServiceUsage()
		return true
	}
	if !serviceCommands[cmd] {
		return false
	}

	s, err := newService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cmd == "status" {
		status, err := s.Status()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to get service status: %v\n", err)
			os.Exit(1)
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service is running")
		case service.StatusStopped:
			fmt.Println("Service is stopped")
		default:
			fmt.Println("Service status unknown")
		}
		return true
	}

	if cmd == "remove" {
		cmd = "uninstall"
	}
	if err := service.Control(s, cmd); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to %s service: %v\n", cmd, err)
		os.Exit(1)
	}
	fmt.Printf("Service %s completed successfully\n", cmd)
	return true
}
