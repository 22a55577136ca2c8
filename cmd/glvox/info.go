package main

import (
	"bytes"
	"fmt"
	"runtime"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/olekukonko/tablewriter"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
	"github.com/urfave/cli"
)

// Info lists the occupancy of the seed tree and optionally the GL limits.
func Info(ctx *cli.Context) error {
	setupLogging(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	sc, err := loadScene(cfg)
	if err != nil {
		return err
	}
	displayTreeStats(sc.params, sc.seed)
	if !ctx.Bool("gpu") {
		return nil
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	_, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "glvox info",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	if err != nil {
		return err
	}
	defer terminate()
	displayDriverInfo(compute.NewGPU().Info())
	return nil
}

// levelStats counts slot tags per tree level.
type levelStats struct {
	cells, parents, leaves, empty int
}

func treeLevels(p glvox.Params, seed glvox.Snapshot) []levelStats {
	nodes := glvox.Nodes(seed.AppendWords(nil))
	levels := make([]levelStats, p.MaxDepth)
	var walk func(cell uint32, level int)
	walk = func(cell uint32, level int) {
		if level >= len(levels) {
			return
		}
		levels[level].cells++
		for oct := uint8(0); oct < glvox.CellSlots; oct++ {
			s := nodes.Slot(cell, oct)
			switch s.Tag {
			case glvox.TagParent:
				levels[level].parents++
				if int(s.Index) < nodes.Cells() {
					walk(s.Index, level+1)
				}
			case glvox.TagLeaf:
				levels[level].leaves++
			default:
				levels[level].empty++
			}
		}
	}
	if nodes.Cells() > 0 {
		walk(glvox.RootCell, 0)
	}
	return levels
}

func displayTreeStats(p glvox.Params, seed glvox.Snapshot) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Level", "Voxel size", "Cells", "Parents", "Leaves", "Empty"})
	for i, l := range treeLevels(p, seed) {
		table.Append([]string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%g", p.Scale/float32(uint32(1)<<(i+1))),
			fmt.Sprintf("%d", l.cells),
			fmt.Sprintf("%d", l.parents),
			fmt.Sprintf("%d", l.leaves),
			fmt.Sprintf("%d", l.empty),
		})
	}
	table.SetFooter([]string{"", "", "CAPACITY", fmt.Sprintf("%d/%d", seed.ActiveCells(), p.CellCapacity), "", ""})
	table.Render()
	logger.Noticef("tree at %v scale %g depth %d\n%s", p.MinPoint, p.Scale, p.MaxDepth, buf.String())
}

func displayDriverInfo(info compute.DriverInfo) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Limit", "Value"})
	table.AppendBulk([][]string{
		{"Vendor", info.Vendor},
		{"Renderer", info.Renderer},
		{"Version", info.Version},
		{"Max work group count", fmt.Sprint(info.MaxWorkGroupCount)},
		{"Max work group size", fmt.Sprint(info.MaxWorkGroupSize)},
		{"Max invocations", fmt.Sprint(info.MaxInvocations)},
		{"Max storage block", fmt.Sprintf("%d bytes", info.MaxStorageBlockSize)},
		{"Atomic counter bindings", fmt.Sprint(info.MaxAtomicCounterBindings)},
		{"GLSL", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))},
	})
	table.Render()
	logger.Noticef("driver limits\n%s", buf.String())
}
