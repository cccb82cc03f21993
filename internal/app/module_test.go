package app

import (
	"context"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/gsole-chat/gsole/internal/tui"
)

func TestModuleLifecycle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var ui *tui.App
	fxApp := fx.New(
		Module(Params{SessionName: "test", DatabaseURL: "http://127.0.0.1:1"}),
		fx.Populate(&ui),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := fxApp.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ui == nil {
		t.Fatal("tui app was not populated")
	}
	if err := fxApp.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestModuleRejectsSecondInstance(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	first := fx.New(
		Module(Params{SessionName: "test", DatabaseURL: "http://127.0.0.1:1"}),
		fx.NopLogger,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	defer func() { _ = first.Stop(ctx) }()

	second := fx.New(
		Module(Params{SessionName: "test", DatabaseURL: "http://127.0.0.1:1"}),
		fx.NopLogger,
	)
	if err := second.Start(ctx); err == nil {
		_ = second.Stop(ctx)
		t.Fatal("second instance should fail to acquire the session lock")
	}
}
