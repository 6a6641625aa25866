// Command inspect decodes a model and prints bone/mesh/animation/physics
// summary statistics. It is a diagnostic aid, not part of the decoder's
// public contract.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/srcmdl/srcdecode"
	"github.com/srcmdl/srcdecode/config"
)

func main() {
	mountRoot := flag.String("mount", "", "asset mount root (default: autodetect)")
	modelPath := flag.String("model", "", "path to .mdl, relative to -mount unless absolute")
	configPath := flag.String("config", "", "optional JSON config file")
	flag.Parse()

	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Resolve(config.Flags{MountRoot: *mountRoot, ModelPath: *modelPath})

	if cfg.ModelPath == "" {
		fmt.Fprintln(os.Stderr, "inspect: -model is required")
		os.Exit(1)
	}

	resolver := &fsResolver{root: cfg.MountRoot}

	mdlData, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", cfg.ModelPath, err)
		os.Exit(1)
	}
	vvdData, err := os.ReadFile(siblingPath(cfg.ModelPath, ".vvd"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read vvd sibling: %v\n", err)
		os.Exit(1)
	}
	vtxData, err := readFirstSibling(cfg.ModelPath, []string{".dx90.vtx", ".dx80.vtx", ".sw.vtx", ".vtx"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "read vtx sibling: %v\n", err)
		os.Exit(1)
	}
	aniData, _ := os.ReadFile(siblingPath(cfg.ModelPath, ".ani"))
	phyData, _ := os.ReadFile(siblingPath(cfg.ModelPath, ".phy"))

	model, decErr := srcdecode.DecodeModel(mdlData, vvdData, vtxData, aniData, phyData, cfg.ModelPath, resolver, nil)
	if decErr != nil {
		fmt.Fprintln(os.Stderr, decErr)
		os.Exit(1)
	}

	printSummary(cfg.ModelPath, model)
}

func siblingPath(modelPath, ext string) string {
	p := modelPath
	if dot := strings.LastIndexByte(p, '.'); dot >= 0 {
		p = p[:dot]
	}
	return p + ext
}

func readFirstSibling(modelPath string, exts []string) ([]byte, error) {
	var lastErr error
	for _, ext := range exts {
		data, err := os.ReadFile(siblingPath(modelPath, ext))
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func printSummary(path string, m *srcdecode.Model) {
	fmt.Printf("=== %s ===\n", path)
	fmt.Printf("bones=%d bodyparts=%d bodies=%d joints=%d animations=%d\n",
		len(m.Bones), len(m.BodyParts), len(m.Bodies), len(m.Joints), len(m.Animations))

	for i, bp := range m.BodyParts {
		numMeshes, numVerts, numTris := 0, 0, 0
		for _, sm := range bp.SubModels {
			numMeshes += len(sm.Meshes)
			for _, mesh := range sm.Meshes {
				numVerts += len(mesh.Vertices)
				numTris += len(mesh.Indices) / 3
			}
		}
		fmt.Printf("  BodyPart[%d] %q: submodels=%d meshes=%d verts=%d tris=%d\n",
			i, bp.Name, len(bp.SubModels), numMeshes, numVerts, numTris)
		for _, sm := range bp.SubModels {
			for _, mesh := range sm.Meshes {
				if len(mesh.Vertices) == 0 {
					continue
				}
				fmt.Printf("    mesh material=%q present=%v bbox=(%.1f,%.1f,%.1f)-(%.1f,%.1f,%.1f)\n",
					mesh.Material.Name, mesh.Material.Present,
					mesh.Bounds.Min[0], mesh.Bounds.Min[1], mesh.Bounds.Min[2],
					mesh.Bounds.Max[0], mesh.Bounds.Max[1], mesh.Bounds.Max[2])
			}
		}
	}

	for i, body := range m.Bodies {
		minV, maxV := hullBounds(body.Hulls)
		fmt.Printf("  Body[%d] bone=%q mass=%.2f hulls=%d bbox=(%.1f,%.1f,%.1f)-(%.1f,%.1f,%.1f)\n",
			i, body.BoneName, body.Mass, len(body.Hulls), minV[0], minV[1], minV[2], maxV[0], maxV[1], maxV[2])
	}
	for i, j := range m.Joints {
		fmt.Printf("  Joint[%d] kind=%v parent=%d child=%d twist=[%.1f,%.1f]\n",
			i, j.Kind, j.ParentBody, j.ChildBody, j.TwistMin, j.TwistMax)
	}
	for _, a := range m.Animations {
		fmt.Printf("  Animation %q: fps=%.1f frames=%d looping=%v delta=%v\n",
			a.Name, a.Fps, len(a.Frames), a.Looping, a.Delta)
	}
}

func hullBounds(hulls []srcdecode.PhysicsHull) (min, max [3]float32) {
	min = [3]float32{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	max = [3]float32{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}
	for _, h := range hulls {
		for _, p := range h.Points {
			for k := 0; k < 3; k++ {
				if p[k] < min[k] {
					min[k] = p[k]
				}
				if p[k] > max[k] {
					max[k] = p[k]
				}
			}
		}
	}
	return min, max
}

// fsResolver implements srcdecode.AssetResolver against a mounted directory
// tree, the same role the teacher's on-disk Data/Item tree plays for texture
// resolution.
type fsResolver struct {
	root string
}

func (f *fsResolver) nativePath(p string) string {
	p = strings.ReplaceAll(p, "/", string(filepath.Separator))
	return filepath.Join(f.root, p)
}

func (f *fsResolver) Exists(path string) bool {
	_, err := os.Stat(f.nativePath(path))
	return err == nil
}

func (f *fsResolver) Read(path string) ([]byte, bool) {
	data, err := os.ReadFile(f.nativePath(path))
	if err != nil {
		return nil, false
	}
	return data, true
}
