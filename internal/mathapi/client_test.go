package mathapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mathviz/internal/geom"
	"github.com/banshee-data/mathviz/internal/httputil"
	"github.com/banshee-data/mathviz/internal/monitoring"
)

func muteLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := monitoring.Logf
	monitoring.Logf = func(format string, v ...interface{}) {
		lines = append(lines, format)
	}
	t.Cleanup(func() { monitoring.Logf = orig })
	return &lines
}

func TestClient_URL(t *testing.T) {
	c := NewClient("http://backend:8080/", httputil.NewMockHTTPClient())
	assert.Equal(t, "http://backend:8080", c.BaseURL())
	assert.Equal(t, "http://backend:8080/api/test", c.URL(EndpointTest, nil))
	assert.Equal(t, "http://backend:8080/api/fft", c.URL("fft", nil))
	assert.Equal(t, "http://backend:8080/api/fractal?resolution=20", c.URL(EndpointFractal, url.Values{"resolution": {"20"}}))
}

func TestTestConnection(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"status":"ok"}`)
	c := NewClient("http://backend", mock)

	raw, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))

	require.Equal(t, 1, mock.RequestCount())
	req := mock.GetRequest(0)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/test", req.URL.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestFetchSurface_BareArray(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `[{"x":0,"y":0,"z":1},{"x":1,"y":0,"z":2},{"x":0,"y":1,"z":3},{"x":1,"y":1,"z":4}]`)
	c := NewClient("http://backend", mock)

	got, err := c.FetchSurface(context.Background(), EndpointConvex, 1, url.Values{"scale": {"2"}})
	require.NoError(t, err)

	want := &geom.SurfaceData{
		Resolution: 1,
		Points: geom.PointGrid{
			{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 2},
			{X: 0, Y: 1, Z: 3}, {X: 1, Y: 1, Z: 4},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("surface mismatch (-want +got):\n%s", diff)
	}

	q := mock.GetRequest(0).URL.Query()
	assert.Equal(t, "1", q.Get("resolution"))
	assert.Equal(t, "2", q.Get("scale"))
}

func TestFetchSurface_DoesNotMutateParams(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `[]`)
	c := NewClient("http://backend", mock)

	params := url.Values{"a": {"1"}}
	_, err := c.FetchSurface(context.Background(), EndpointConvex, 5, params)
	require.NoError(t, err)
	assert.Equal(t, url.Values{"a": {"1"}}, params)
}

func TestDecodeSurface_ObjectForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *geom.SurfaceData
	}{
		{
			name: "specialPoint",
			body: `{"points":[{"x":1,"y":2,"z":3}],"resolution":4,"specialPoint":{"x":0,"y":0,"z":0}}`,
			want: &geom.SurfaceData{Points: geom.PointGrid{{X: 1, Y: 2, Z: 3}}, Resolution: 4, Special: &geom.Point3D{}},
		},
		{
			name: "minimum as array",
			body: `{"points":[],"minimum":[1,2,3]}`,
			want: &geom.SurfaceData{Points: geom.PointGrid{}, Resolution: 10, Special: &geom.Point3D{X: 1, Y: 2, Z: 3}},
		},
		{
			name: "saddlePoint",
			body: `{"points":[],"resolution":0,"saddlePoint":{"x":0,"y":0,"z":-1}}`,
			want: &geom.SurfaceData{Points: geom.PointGrid{}, Resolution: 10, Special: &geom.Point3D{Z: -1}},
		},
		{
			name: "no special point",
			body: ` {"points":[{"x":1,"y":1,"z":1}]}`,
			want: &geom.SurfaceData{Points: geom.PointGrid{{X: 1, Y: 1, Z: 1}}, Resolution: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSurface([]byte(tt.body), 10)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeResolutionOutOfRange(t *testing.T) {
	lines := muteLogs(t)
	pts := `[{"x":0,"y":0,"z":0},{"x":1,"y":0,"z":1},{"x":0,"y":1,"z":1},{"x":1,"y":1,"z":2}]`

	s, err := DecodeSurface([]byte(`{"points":`+pts+`,"resolution":2147483648}`), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Resolution)
	assert.Len(t, s.Points, 4)

	d, err := DecodeDescent([]byte(`{"surface":`+pts+`,"resolution":201,"path":[]}`), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Resolution)

	d, err = DecodeDescent([]byte(`{"surface":`+pts+`,"resolution":200,"path":[]}`), 1)
	require.NoError(t, err)
	assert.Equal(t, MaxResolution, d.Resolution)

	assert.Len(t, *lines, 2, "each rejected resolution is logged once")
}

func TestDecodeSurface_Invalid(t *testing.T) {
	_, err := DecodeSurface([]byte(`[{"x":"a"}]`), 1)
	assert.Error(t, err)
	_, err = DecodeSurface([]byte(`"text"`), 1)
	assert.Error(t, err)
}

func TestFetchDescent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *geom.DescentData
	}{
		{
			name: "path only",
			body: `[{"x":3,"y":3,"z":18},{"x":1,"y":1,"z":2}]`,
			want: &geom.DescentData{Resolution: 20, Path: geom.PathSequence{{X: 3, Y: 3, Z: 18}, {X: 1, Y: 1, Z: 2}}},
		},
		{
			name: "surface and path",
			body: `{"surface":[{"x":0,"y":0,"z":0}],"resolution":8,"path":[{"x":1,"y":1,"z":2}]}`,
			want: &geom.DescentData{
				Surface:    geom.PointGrid{{}},
				Resolution: 8,
				Path:       geom.PathSequence{{X: 1, Y: 1, Z: 2}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httputil.NewMockHTTPClient()
			mock.AddResponse(http.StatusOK, tt.body)
			c := NewClient("http://backend", mock)

			got, err := c.FetchDescent(context.Background(), EndpointGradientDescent, 20, url.Values{"learningRate": {"0.1"}})
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			call, ok := mock.LastCall()
			require.True(t, ok)
			q := call.Query
			assert.Equal(t, "0.1", q.Get("learningRate"))
			assert.Equal(t, "20", q.Get("resolution"))
		})
	}
}

func TestFetchPoints(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `[{"x":0,"y":0,"z":0},{"x":1,"y":0,"z":5}]`)
	c := NewClient("http://backend", mock)

	pts, err := c.FetchPoints(context.Background(), EndpointFFT, url.Values{"samples": {"64"}})
	require.NoError(t, err)
	assert.Len(t, pts, 2)
	assert.Equal(t, 5.0, pts[1].Z)
	calls := mock.CallsTo("/api/fft")
	require.Len(t, calls, 1)
	assert.Equal(t, "64", calls[0].Query.Get("samples"))
}

func TestErrors_StatusAndTransport(t *testing.T) {
	logs := muteLogs(t)

	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusInternalServerError, "boom")
	mock.AddErrorResponse(errors.New("connection refused"))
	c := NewClient("http://backend", mock)

	_, err := c.FetchPoints(context.Background(), EndpointMonteCarlo, nil)
	require.Error(t, err)
	var se *httputil.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "boom", se.Body)

	_, err = c.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	assert.Len(t, *logs, 2)
}

func TestTimeout_AgainstSlowServer(t *testing.T) {
	muteLogs(t)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, httputil.NewTimeoutClient(50*time.Millisecond))
	start := time.Now()
	_, err := c.TestConnection(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestContextCancel(t *testing.T) {
	muteLogs(t)
	mock := httputil.NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	c := NewClient("http://backend", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchPoints(ctx, EndpointFFT, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAgainstHTTPTestServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/saddle-function" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"points":[{"x":0,"y":0,"z":0}],"resolution":` + r.URL.Query().Get("resolution") + `,"saddlePoint":{"x":0,"y":0,"z":0}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	got, err := c.FetchSurface(context.Background(), EndpointSaddle, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Resolution)
	require.NotNil(t, got.Special)
}
