package capture

import (
	"errors"
	"testing"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name      string
		fps       int
		sizes     []Size
		wantFPS   int
		wantSizes int
	}{
		{
			name:      "defaults",
			fps:       0,
			sizes:     nil,
			wantFPS:   DefaultFPS,
			wantSizes: len(DefaultSizes),
		},
		{
			name:      "custom",
			fps:       30,
			sizes:     []Size{{Width: 320, Height: 240}},
			wantFPS:   30,
			wantSizes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(0, tt.fps, tt.sizes)
			if cam.fps != tt.wantFPS {
				t.Errorf("fps = %d, want %d", cam.fps, tt.wantFPS)
			}
			if got := len(cam.SupportedSizes()); got != tt.wantSizes {
				t.Errorf("len(SupportedSizes()) = %d, want %d", got, tt.wantSizes)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open initially")
			}
		})
	}
}

func TestCamera_WithoutDevice(t *testing.T) {
	cam := NewCamera(0, 0, nil)

	if err := cam.StartPreview(func(Frame) {}); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("StartPreview() error = %v, want ErrCameraNotOpen", err)
	}

	got, err := cam.SetPreviewSize(Size{Width: 320, Height: 240})
	if err != nil || got != (Size{Width: 320, Height: 240}) {
		t.Errorf("SetPreviewSize() = %s, %v", got, err)
	}
	if _, err := cam.SetPreviewSize(Size{Width: 123, Height: 45}); !errors.Is(err, ErrUnsupportedSize) {
		t.Errorf("SetPreviewSize() error = %v, want ErrUnsupportedSize", err)
	}

	cam.StopPreview()

	if err := cam.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if err := cam.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
	if err := cam.Open(); !errors.Is(err, ErrSourceReleased) {
		t.Errorf("Open() after Release() error = %v, want ErrSourceReleased", err)
	}
}

func TestCamera_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0, 0, nil)
	if err := cam.Open(); err != nil {
		t.Skipf("no camera available: %v", err)
	}
	defer cam.Release()

	if !cam.IsOpen() {
		t.Error("camera should be open after Open()")
	}
}
