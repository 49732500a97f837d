//go:build js && wasm

package jsdom

import (
	"context"
	"fmt"
	"syscall/js"
)

// Storage implements the services.KVStore contract over chrome.storage.local,
// the same keyspace the extension's options page reads.
type Storage struct{}

func NewStorage() *Storage { return &Storage{} }

func storageArea() (js.Value, error) {
	chrome := js.Global().Get("chrome")
	if chrome.IsNull() || chrome.IsUndefined() {
		return js.Value{}, fmt.Errorf("chrome runtime unavailable")
	}
	storage := chrome.Get("storage")
	if storage.IsNull() || storage.IsUndefined() {
		return js.Value{}, fmt.Errorf("chrome.storage unavailable")
	}
	return storage.Get("local"), nil
}

// Get returns a mapping holding only the requested keys that exist.
func (s *Storage) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	area, err := storageArea()
	if err != nil {
		return nil, err
	}
	req := make([]any, len(keys))
	for i, k := range keys {
		req[i] = k
	}

	done := make(chan js.Value, 1)
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			done <- args[0]
		} else {
			done <- js.Undefined()
		}
		return nil
	})
	area.Call("get", req, cb)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v := <-done:
		cb.Release()
		out := make(map[string]string)
		if v.IsNull() || v.IsUndefined() {
			return out, nil
		}
		for _, k := range keys {
			item := v.Get(k)
			if item.Type() == js.TypeString {
				out[k] = item.String()
			}
		}
		return out, nil
	}
}

// Set upserts the mapping.
func (s *Storage) Set(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	area, err := storageArea()
	if err != nil {
		return err
	}
	obj := make(map[string]any, len(values))
	for k, v := range values {
		if k == "" {
			return fmt.Errorf("empty storage key")
		}
		obj[k] = v
	}

	done := make(chan struct{}, 1)
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		done <- struct{}{}
		return nil
	})
	area.Call("set", obj, cb)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		cb.Release()
		return nil
	}
}
