package main

import (
	"bytes"
	"fmt"
	"math/rand"

	"github.com/olekukonko/tablewriter"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
	"github.com/soypat/glvox/glrender"
	"github.com/urfave/cli"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Bench applies random edit batches and renders a frame after each one.
func Bench(ctx *cli.Context) error {
	setupLogging(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	frames, edits := ctx.Int("frames"), ctx.Int("edits")
	width, height := ctx.Int("width"), ctx.Int("height")
	if frames < 1 || edits < 0 || width < 1 || height < 1 {
		return fmt.Errorf("invalid benchmark: %d frames of %d edits at %dx%d", frames, edits, width, height)
	}
	cfg.Octree.DeltaCapacity = max(cfg.Octree.DeltaCapacity, edits)
	sc, err := loadScene(cfg)
	if err != nil {
		return err
	}
	pc, err := pipelineConfig(cfg, sc, width, height)
	if err != nil {
		return err
	}
	pl, err := glrender.NewPipeline(compute.NewCPU(), nil, pc)
	if err != nil {
		return err
	}
	defer pl.Release()

	rng := rand.New(rand.NewSource(ctx.Int64("rand-seed")))
	cam := cameraBuilder(cfg, width, height).Build()
	deltas := make([]glvox.Delta, edits)
	timer := glrender.NewFrameTimer()
	for i := 0; i < frames; i++ {
		for j := range deltas {
			deltas[j] = glvox.Delta{
				Position: ms3.Vec{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()},
				Edit:     glvox.EditType(rng.Intn(2)),
				Value:    uint32(rng.Intn(len(sc.palette))),
			}
		}
		if err := pl.Frame(cam, deltas); err != nil {
			return err
		}
		// Reading back synchronizes like presenting a frame would.
		if _, err := pl.Raytracer().ReadImage(); err != nil {
			return err
		}
		timer.Tick()
	}
	active, err := pl.Updater().CheckCapacity()
	if err != nil {
		return err
	}
	displayBenchStats(timer.Stats(), active, pl.Octree().Params().CellCapacity)
	if path := ctx.String("hist"); path != "" {
		if err := saveHistogram(path, timer.Samples()); err != nil {
			return err
		}
		logger.Noticef("wrote frame time histogram to %s", path)
	}
	return nil
}

func displayBenchStats(s glrender.Stats, active, capacity int) {
	ms := func(v float64) string { return fmt.Sprintf("%.2f ms", 1000*v) }
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frames", "Mean", "Std dev", "Min", "p50", "p95", "p99", "Max", "FPS"})
	table.Append([]string{
		fmt.Sprintf("%d", s.Frames),
		ms(s.Mean), ms(s.StdDev), ms(s.Min), ms(s.P50), ms(s.P95), ms(s.P99), ms(s.Max),
		fmt.Sprintf("%.1f", s.FPS()),
	})
	table.SetFooter([]string{"", "", "", "", "", "", "CELLS", fmt.Sprintf("%d/%d", active, capacity), ""})
	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}

func saveHistogram(path string, seconds []float64) error {
	values := make(plotter.Values, len(seconds))
	for i, s := range seconds {
		values[i] = 1000 * s
	}
	p := plot.New()
	p.Title.Text = "Frame times"
	p.X.Label.Text = "ms"
	p.Y.Label.Text = "frames"
	h, err := plotter.NewHist(values, 20)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
