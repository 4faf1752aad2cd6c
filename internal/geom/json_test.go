package geom

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPoint3D_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Point3D
		wantErr bool
	}{
		{"object", `{"x":1,"y":2,"z":3}`, Point3D{X: 1, Y: 2, Z: 3}, false},
		{"object missing field", `{"x":1,"z":3}`, Point3D{X: 1, Z: 3}, false},
		{"array", `[1.5, -2, 3]`, Point3D{X: 1.5, Y: -2, Z: 3}, false},
		{"short array", `[1, 2]`, Point3D{}, true},
		{"garbage", `"nope"`, Point3D{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Point3D
			err := json.Unmarshal([]byte(tt.in), &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if diff := cmp.Diff(tt.want, p); diff != "" {
					t.Errorf("point mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestPoint3D_MarshalRoundTripsAsObject(t *testing.T) {
	b, err := json.Marshal(Point3D{X: 1, Y: 2, Z: 3})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"x":1,"y":2,"z":3}` {
		t.Errorf("got %s", b)
	}
}
