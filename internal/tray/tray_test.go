package tray

import "testing"

func TestFacesTitle(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 faces"},
		{1, "1 face"},
		{3, "3 faces"},
	}
	for _, tt := range tests {
		if got := facesTitle(tt.n); got != tt.want {
			t.Errorf("facesTitle(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New("monkeycam")

	var opened, rotated int
	tr.OnOpen(func() { opened++ })
	tr.OnRotate(func() { rotated++ })

	tr.call(func(t *Tray) func() { return t.onOpen })
	tr.call(func(t *Tray) func() { return t.onRotate })
	tr.call(func(t *Tray) func() { return t.onRotate })
	tr.call(func(t *Tray) func() { return t.onQuit }) // unset

	if opened != 1 || rotated != 2 {
		t.Errorf("opened = %d, rotated = %d, want 1 and 2", opened, rotated)
	}
}

func TestTray_SetFaceCount(t *testing.T) {
	tr := New("monkeycam")
	if tr.FaceCount() != 0 {
		t.Errorf("FaceCount() = %d, want 0", tr.FaceCount())
	}

	// Before the menu exists only the counter changes.
	tr.SetFaceCount(2)
	if tr.FaceCount() != 2 {
		t.Errorf("FaceCount() = %d, want 2", tr.FaceCount())
	}
}
