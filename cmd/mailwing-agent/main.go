//go:build js && wasm

// mailwing-agent is the content-script build of the engine. The extension
// loader injects the wasm binary into the webmail tab; from there the same
// engine that runs over snapshots in the CLI runs over the live page.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"syscall/js"

	"github.com/mailwing/mailwing/internal/config"
	"github.com/mailwing/mailwing/internal/detect"
	"github.com/mailwing/mailwing/internal/engine"
	"github.com/mailwing/mailwing/internal/jsdom"
	"github.com/mailwing/mailwing/internal/llm"
	"github.com/mailwing/mailwing/internal/services"
	"github.com/mailwing/mailwing/internal/surface"
	"github.com/mailwing/mailwing/internal/tracker"
	"github.com/mailwing/mailwing/internal/trigger"
	"github.com/mailwing/mailwing/internal/version"
)

func main() {
	logger := log.New(consoleWriter{}, "", log.LstdFlags)
	logger.Printf("%s agent starting", version.GetVersionString())

	cfg := loadConfig(logger)
	ctx := context.Background()

	doc := jsdom.NewDocument()
	page := jsdom.NewPage(doc)
	runtime := jsdom.NewRuntime()

	detector := detect.NewDetector(page, selectorOverrides(logger))
	presenter := surface.NewDOMPresenter(doc, logger)

	prefsImpl := services.NewPrefsService(jsdom.NewStorage(), runtime)
	prefsImpl.SetLogger(logger)

	trk := tracker.New(page, detector, presenter, prefsImpl, nil, logger)

	var provider llm.Provider
	if cfg.LLM.Enabled && cfg.LLM.Model != "" {
		var err error
		provider, err = llm.NewProviderFromConfig(cfg.LLM.Provider, cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.Region, cfg.GetLLMTimeout())
		if err != nil {
			logger.Printf("llm provider unavailable: %v", err)
		}
	}
	replies := services.NewReplyService(provider, cfg, runtime, nil)

	eng := engine.New(runtime, page, trk, detector, replies, cfg.LLM.MaxContextChars, logger)
	eng.SetDraftHandler(func(threadID, text string) { showDraft(doc, text) })

	presenter.OnToggle(func() { eng.HandleToggle(ctx) })
	presenter.OnGenerate(func() { eng.Post(func() { eng.HandleGenerate(ctx) }) })
	wireClicks(presenter)

	agg := trigger.New(page, runtime, eng, trk, detector, cfg.Engine, logger)
	stop := agg.Start(ctx)
	defer stop()

	// Blocks until the runtime is invalidated; the agent then goes quiet
	// instead of erroring inside an orphaned tab.
	eng.Run(ctx)
}

// wireClicks installs one delegated click listener for both controls. The
// surface is destroyed and rebuilt on every thread change, so per-element
// listeners would have to be re-attached constantly; delegation survives all
// of that.
func wireClicks(presenter *surface.DOMPresenter) {
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		target := args[0].Get("target")
		if target.IsNull() || target.IsUndefined() {
			return nil
		}
		if closest(target, "[data-mailwing-toggle]") {
			presenter.ClickToggle()
		} else if closest(target, "[data-mailwing-generate]") {
			presenter.ClickGenerate()
		}
		return nil
	})
	js.Global().Get("document").Call("addEventListener", "click", handler, true)
}

func closest(target js.Value, selector string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	v := target.Call("closest", selector)
	return !v.IsNull() && !v.IsUndefined()
}

// showDraft renders the generated draft under the surface root for the user
// to review and copy. Nothing is ever typed into the page's own compose box.
func showDraft(doc *jsdom.Document, text string) {
	root, ok := doc.Query("[" + surface.RootMarker + "]")
	if !ok {
		return
	}
	if old, ok := doc.Query("[data-mailwing-draft]"); ok {
		old.Remove()
	}
	panel := doc.CreateElement("div")
	panel.SetAttr("data-mailwing-draft", "1")
	panel.SetAttr("class", "mailwing-draft")
	panel.SetText(text)
	root.AppendChild(panel)
}

// loadConfig merges the loader-injected configuration over the defaults. The
// loader script sets window.__mailwingConfig to the JSON blob from the
// options page; a missing or malformed blob means defaults.
func loadConfig(logger *log.Logger) *config.Config {
	cfg := config.DefaultConfig()
	raw := js.Global().Get("__mailwingConfig")
	if raw.Type() != js.TypeString {
		return cfg
	}
	if err := json.Unmarshal([]byte(raw.String()), cfg); err != nil {
		logger.Printf("ignoring malformed injected config: %v", err)
		return config.DefaultConfig()
	}
	return cfg
}

// selectorOverrides parses an optional loader-injected selector pack. Lets a
// broken compiled-in selector be hotfixed from the options page without
// shipping a new binary.
func selectorOverrides(logger *log.Logger) *detect.SelectorPack {
	raw := js.Global().Get("__mailwingSelectors")
	if raw.Type() != js.TypeString {
		return nil
	}
	pack, err := detect.ParseSelectorPack([]byte(raw.String()))
	if err != nil {
		logger.Printf("ignoring malformed injected selector pack: %v", err)
		return nil
	}
	return pack
}

// consoleWriter routes the standard logger to the devtools console.
type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	js.Global().Get("console").Call("log", fmt.Sprintf("[mailwing] %s", p))
	return len(p), nil
}
