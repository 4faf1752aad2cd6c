package stream

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/mathviz/internal/render"
	"github.com/banshee-data/mathviz/internal/scene"
)

// Top-level keys of a frame message.
const (
	FieldSequence   = "sequence"
	FieldTimestamp  = "timestamp_ms"
	FieldSource     = "source"
	FieldBackground = "background"
	FieldCamera     = "camera"
	FieldMeshes     = "meshes"
	FieldLines      = "lines"
	FieldLabels     = "labels"
)

func vec(v r3.Vec) []interface{} {
	return []interface{}{v.X, v.Y, v.Z}
}

func flatten(vs []r3.Vec) []interface{} {
	out := make([]interface{}, 0, 3*len(vs))
	for _, v := range vs {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

func flattenColors(cs []scene.Color) []interface{} {
	out := make([]interface{}, 0, 3*len(cs))
	for _, c := range cs {
		out = append(out, float64(c.R), float64(c.G), float64(c.B))
	}
	return out
}

func indices(ix []uint32) []interface{} {
	out := make([]interface{}, len(ix))
	for i, v := range ix {
		out[i] = float64(v)
	}
	return out
}

// EncodeFrame converts a captured frame into the wire message. cam may be nil.
func EncodeFrame(seq uint64, at time.Time, source string, f render.Frame, cam *scene.Camera) (*structpb.Struct, error) {
	meshes := make([]interface{}, 0, len(f.Meshes))
	for _, m := range f.Meshes {
		meshes = append(meshes, map[string]interface{}{
			"id":        m.ID,
			"name":      m.Name,
			"positions": flatten(m.Positions),
			"colors":    flattenColors(m.Colors),
			"indices":   indices(m.Indices),
			"color":     m.Color.Hex(),
			"opacity":   m.Opacity,
		})
	}
	lines := make([]interface{}, 0, len(f.Lines))
	for _, l := range f.Lines {
		lines = append(lines, map[string]interface{}{
			"id":        l.ID,
			"name":      l.Name,
			"kind":      l.Kind.String(),
			"positions": flatten(l.Positions),
			"colors":    flattenColors(l.Colors),
			"indices":   indices(l.Indices),
			"color":     l.Color.Hex(),
			"width":     l.Width,
			"opacity":   l.Opacity,
			"segments":  l.Segments,
		})
	}
	labels := make([]interface{}, 0, len(f.Labels))
	for _, l := range f.Labels {
		labels = append(labels, map[string]interface{}{
			"id":       l.ID,
			"text":     l.Text,
			"position": vec(l.Position),
			"color":    l.Color.Hex(),
			"height":   l.Height,
		})
	}

	fields := map[string]interface{}{
		FieldSequence:   float64(seq),
		FieldTimestamp:  float64(at.UnixMilli()),
		FieldSource:     source,
		FieldBackground: f.Background.Hex(),
		FieldMeshes:     meshes,
		FieldLines:      lines,
		FieldLabels:     labels,
	}
	if cam != nil {
		fields[FieldCamera] = map[string]interface{}{
			"position": vec(cam.Position),
			"target":   vec(cam.Target),
			"up":       vec(cam.Up),
			"fov":      cam.FOV,
			"aspect":   cam.Aspect,
			"near":     cam.Near,
			"far":      cam.Far,
		}
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame %d: %w", seq, err)
	}
	return msg, nil
}

// Sequence returns the frame sequence number carried by msg.
func Sequence(msg *structpb.Struct) uint64 {
	return uint64(msg.GetFields()[FieldSequence].GetNumberValue())
}

// filterFrame returns msg with the excluded sections removed. The input is
// shared between clients and is never modified.
func filterFrame(msg *structpb.Struct, req Request) *structpb.Struct {
	if req.IncludeMeshes && req.IncludeLines && req.IncludeLabels {
		return msg
	}
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(msg.GetFields()))}
	for k, v := range msg.GetFields() {
		switch {
		case k == FieldMeshes && !req.IncludeMeshes,
			k == FieldLines && !req.IncludeLines,
			k == FieldLabels && !req.IncludeLabels:
			continue
		}
		out.Fields[k] = v
	}
	return out
}
