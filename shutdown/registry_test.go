package shutdown

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestShutdownRegistry_Order(t *testing.T) {
	r := NewShutdownRegistry()
	var order []string
	add := func(name string, prio int) {
		r.Register(name, prio, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	add("logger", PriorityLogging)
	add("database", PriorityStorage)
	add("http", PriorityServer)
	add("recorder", PriorityWorkers)
	add("retention", PriorityWorkers)

	want := []string{"http", "recorder", "retention", "database", "logger"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if errs := r.Run(context.Background()); len(errs) != 0 {
		t.Fatalf("Run() errors = %v", errs)
	}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestShutdownRegistry_ErrorsDoNotStopOthers(t *testing.T) {
	r := NewShutdownRegistry()
	ran := 0
	r.Register("database", 1, func(context.Context) error { ran++; return errors.New("locked") })
	r.Register("logger", 2, func(context.Context) error { ran++; return nil })

	errs := r.Run(context.Background())
	if ran != 2 {
		t.Errorf("ran = %d, want 2", ran)
	}
	if len(errs) != 1 || !strings.HasPrefix(errs[0].Error(), "database: ") {
		t.Errorf("errs = %v", errs)
	}

	if errs := r.Run(context.Background()); errs != nil || ran != 2 {
		t.Error("second Run() should be a no-op")
	}
	r.Register("late", 0, func(context.Context) error { return nil })
	if r.Count() != 2 {
		t.Errorf("Count() = %d after late registration", r.Count())
	}
}
