//go:build js && wasm

// Command aircorewasm exposes the simulation core to a JavaScript host.
//
// It registers five global functions:
//
//	aircoreInit(cueSource, prefix?) -> {handle} | {error, code}
//	aircoreSet(handle, name, value) -> {} | {error, code}
//	aircoreTick(handle, dt)         -> {tick, degraded} | {error, code}
//	aircoreGet(handle, name)        -> {value} | {error, code}
//	aircoreShutdown(handle)         -> {} | {error, code}
//
// Names carry the host prefix (AIRCORE_ unless aircoreInit is given one).
// Every value crosses the boundary as a float64.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall/js"

	"github.com/roach88/aircore/internal/bridge"
	"github.com/roach88/aircore/internal/compiler"
	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/systems"
)

const defaultPrefix = "AIRCORE_"

var (
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mu      sync.Mutex
	bridges = map[string]*bridge.Bridge{} // by prefix
	owners  = map[bridge.Handle]*bridge.Bridge{}
)

func main() {
	js.Global().Set("aircoreInit", js.FuncOf(initSession))
	js.Global().Set("aircoreSet", js.FuncOf(setInput))
	js.Global().Set("aircoreTick", js.FuncOf(tick))
	js.Global().Set("aircoreGet", js.FuncOf(getOutput))
	js.Global().Set("aircoreShutdown", js.FuncOf(shutdown))
	select {}
}

// bridgeFor returns the bridge serving prefix, creating it on first use.
func bridgeFor(prefix string) *bridge.Bridge {
	mu.Lock()
	defer mu.Unlock()
	b, ok := bridges[prefix]
	if !ok {
		b = bridge.New(bridge.WithPrefix(prefix), bridge.WithLogger(logger))
		bridges[prefix] = b
	}
	return b
}

// owner returns the bridge holding h.
func owner(h bridge.Handle) (*bridge.Bridge, error) {
	mu.Lock()
	defer mu.Unlock()
	b, ok := owners[h]
	if !ok {
		return nil, ir.NewInvalidHandle(string(h))
	}
	return b, nil
}

func initSession(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return failure(fmt.Errorf("aircoreInit(cueSource, prefix?): missing source"))
	}
	prefix := defaultPrefix
	if len(args) > 1 && args[1].Type() == js.TypeString {
		prefix = args[1].String()
	}

	cfg, err := compiler.CompileString(args[0].String(), "config.cue", systems.Default())
	if err != nil {
		return failure(err)
	}
	b := bridgeFor(prefix)
	h, err := b.Initialize(cfg)
	if err != nil {
		return failure(err)
	}

	mu.Lock()
	owners[h] = b
	mu.Unlock()
	return map[string]any{"handle": string(h)}
}

func setInput(_ js.Value, args []js.Value) any {
	if len(args) < 3 {
		return failure(fmt.Errorf("aircoreSet(handle, name, value): missing arguments"))
	}
	h := bridge.Handle(args[0].String())
	b, err := owner(h)
	if err != nil {
		return failure(err)
	}
	if err := b.SetInputFloat(h, args[1].String(), args[2].Float()); err != nil {
		return failure(err)
	}
	return map[string]any{}
}

func tick(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return failure(fmt.Errorf("aircoreTick(handle, dt): missing arguments"))
	}
	h := bridge.Handle(args[0].String())
	b, err := owner(h)
	if err != nil {
		return failure(err)
	}
	report, err := b.Tick(h, args[1].Float())
	if err != nil {
		return failure(err)
	}
	degraded := make([]any, len(report.Degraded))
	for i, d := range report.Degraded {
		degraded[i] = d.System
	}
	return map[string]any{"tick": float64(report.Tick), "degraded": degraded}
}

func getOutput(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return failure(fmt.Errorf("aircoreGet(handle, name): missing arguments"))
	}
	h := bridge.Handle(args[0].String())
	b, err := owner(h)
	if err != nil {
		return failure(err)
	}
	x, err := b.GetOutputFloat(h, args[1].String())
	if err != nil {
		return failure(err)
	}
	return map[string]any{"value": x}
}

func shutdown(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return failure(fmt.Errorf("aircoreShutdown(handle): missing handle"))
	}
	h := bridge.Handle(args[0].String())
	b, err := owner(h)
	if err != nil {
		return failure(err)
	}
	if err := b.Shutdown(h); err != nil {
		return failure(err)
	}
	mu.Lock()
	delete(owners, h)
	mu.Unlock()
	return map[string]any{}
}

// failure converts err into the object returned to JavaScript.
func failure(err error) any {
	code := "ERROR"
	if e, ok := ir.AsError(err); ok {
		code = string(e.Code)
	}
	return map[string]any{"error": err.Error(), "code": code}
}
