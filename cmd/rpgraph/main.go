// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command rpgraph wires a render pipeline headlessly and prints its
// execution plan: the topological stage order and, per pipe, who produces
// and who consumes it. With -png it also renders the pipe matrix view.
//
// Without flags it shows the built-in demo graph, a small deferred chain
// with a previous-frame dependency:
//
//	rpgraph
//	rpgraph -plugins config/plugins.yaml -png graph.png
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rp"
	"github.com/gogpu/rp/debug"
	"github.com/gogpu/rp/device"
	"github.com/gogpu/rp/plugin"
	"github.com/gogpu/rp/stage"
)

func main() {
	shaderDir := flag.String("shaders", "shaders", "shader root directory")
	pluginCfg := flag.String("plugins", "", "plugin configuration file")
	width := flag.Int("width", 1920, "pipeline width")
	height := flag.Int("height", 1080, "pipeline height")
	pngOut := flag.String("png", "", "write the pipe matrix view to this PNG file")
	pngScale := flag.Int("scale", 2, "pipe matrix render scale")
	verbose := flag.Bool("v", false, "log pipeline setup")
	flag.Parse()

	if *verbose {
		rp.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	opts := []rp.Option{
		rp.WithShaderDir(*shaderDir),
		rp.WithResolution(*width, *height),
	}
	if *pluginCfg != "" {
		opts = append(opts, rp.WithPluginConfigFile(*pluginCfg))
	} else {
		plugin.Register("demo", newDemoPlugin)
		opts = append(opts, rp.WithPluginConfig(plugin.Config{Enabled: []string{"demo"}}))
	}

	p := rp.New(opts...)
	if err := p.Create(); err != nil {
		fmt.Fprintln(os.Stderr, "rpgraph:", err)
		os.Exit(1)
	}
	defer p.Destroy()

	printPlan(p.StageManager())

	if *pngOut != "" {
		pm := debug.BuildPipeMatrix(p.StageManager())
		if err := pm.SavePNG(*pngOut, *pngScale); err != nil {
			fmt.Fprintln(os.Stderr, "rpgraph:", err)
			os.Exit(1)
		}
		fmt.Println("\npipe matrix written to", *pngOut)
	}
}

func printPlan(m *stage.Manager) {
	order := m.Order()

	fmt.Println("Execution order:")
	for i, st := range order {
		state := ""
		if !st.Active() {
			state = "  (disabled)"
		}
		fmt.Printf("  %2d. %s [%s]%s\n", i+1, st.StageID(), st.PluginID(), state)
	}

	fmt.Println("\nPipes:")
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  PIPE\tPRODUCER\tCONSUMERS")
	for _, st := range order {
		for _, pipe := range st.ProducedPipes() {
			consumers := m.Consumers(pipe)
			if len(consumers) == 0 {
				consumers = []string{"-"}
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", pipe, st.StageID(), strings.Join(consumers, ", "))
		}
	}
	tw.Flush()
}

// demoPlugin contributes a miniature deferred chain so the tool has a
// graph to show without an application embedding the pipeline.
type demoPlugin struct {
	plugin.BasePlugin
}

func newDemoPlugin() plugin.Plugin {
	p := &demoPlugin{BasePlugin: plugin.NewBase(plugin.Info{
		ID:          "demo",
		Name:        "Demo Graph",
		Description: "Miniature deferred chain for rpgraph",
		Version:     "1.0",
	})}
	p.Settings().Define("exposure", &plugin.Setting{
		Type: plugin.TypeFloat, Default: 1.0, Runtime: true,
		Min: 0.01, Max: 16,
	})
	return p
}

func (p *demoPlugin) OnStageSetup(plugin.Host) error {
	p.AddStage(newDemoStage("GBufferStage", nil, []string{"GBuffer"}))
	p.AddStage(newDemoStage("AmbientStage",
		[]string{"GBuffer", stage.PreviousFramePrefix + "SceneColor"},
		[]string{"AmbientColor"}))
	p.AddStage(newDemoStage("CombineStage",
		[]string{"GBuffer", "AmbientColor"}, []string{"SceneColor"}))
	p.AddStage(newDemoStage("TonemapStage", []string{"SceneColor"}, []string{"FinalColor"}))
	return nil
}

// demoStage publishes one headless image per produced pipe.
type demoStage struct {
	stage.BaseStage
	requires []string
	produces []string
}

func newDemoStage(id string, requires, produces []string) *demoStage {
	return &demoStage{BaseStage: stage.NewBase(id), requires: requires, produces: produces}
}

func (s *demoStage) RequiredPipes() []string { return s.requires }
func (s *demoStage) ProducedPipes() []string { return s.produces }
func (s *demoStage) RequiredInputs() []string {
	return []string{"DayTime"}
}

func (s *demoStage) Create(ctx *stage.Context) error {
	if err := s.BaseStage.Create(ctx); err != nil {
		return err
	}
	for _, pipe := range s.produces {
		img, err := device.NewImage2D(ctx.Device, pipe, ctx.Width, ctx.Height,
			gputypes.TextureFormatRGBA16Float)
		if err != nil {
			return err
		}
		s.Publish(pipe, img)
	}
	return nil
}
