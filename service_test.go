//go:build !windows

package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestHandleServiceCommand_NotHandled(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", []string{}},
		{"program only", []string{"program"}},
		{"unknown command", []string{"program", "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if HandleServiceCommand(tt.args) {
				t.Errorf("HandleServiceCommand(%v) = true", tt.args)
			}
		})
	}
}

func TestHandleServiceCommand_Help(t *testing.T) {
	for _, cmd := range []string{"help", "-h", "--help", "-help"} {
		t.Run(cmd, func(t *testing.T) {
			var handled bool
			out := captureStdout(t, func() { handled = HandleServiceCommand([]string{"program", cmd}) })
			if !handled {
				t.Errorf("%s not handled", cmd)
			}
			if !strings.Contains(out, "Prognose-Generator") || !strings.Contains(out, "install") {
				t.Errorf("usage output = %q", out)
			}
		})
	}
}

func TestHandleServiceCommand_WindowsOnly(t *testing.T) {
	for _, cmd := range []string{"install", "uninstall", "remove", "start", "stop", "restart", "status"} {
		t.Run(cmd, func(t *testing.T) {
			var handled bool
			out := captureStdout(t, func() { handled = HandleServiceCommand([]string{"program", cmd}) })
			if !handled {
				t.Errorf("%s not handled", cmd)
			}
			if !strings.Contains(out, "only available on Windows") {
				t.Errorf("output = %q", out)
			}
		})
	}
}

func TestRunAsService_NonWindows(t *testing.T) {
	isService, err := RunAsService()
	if err != nil || isService {
		t.Errorf("RunAsService() = %v, %v; want false, nil", isService, err)
	}
}
