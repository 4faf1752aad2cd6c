package geom

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalJSON accepts either {"x":..,"y":..,"z":..} or a 3-element [x, y, z] array.
func (p *Point3D) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var xyz []float64
		if err := json.Unmarshal(data, &xyz); err != nil {
			return err
		}
		if len(xyz) != 3 {
			return fmt.Errorf("point array has %d elements, want 3", len(xyz))
		}
		p.X, p.Y, p.Z = xyz[0], xyz[1], xyz[2]
		return nil
	}
	type plain Point3D
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Point3D(v)
	return nil
}
