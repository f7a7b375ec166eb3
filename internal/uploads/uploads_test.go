package uploads

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestSave_Image(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "img")
	s := New(dir, 0)
	saved, err := s.Save("../Holiday Photo.png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(saved.Name, "holiday-photo-") || filepath.Ext(saved.Name) != ".png" {
		t.Errorf("name = %q", saved.Name)
	}
	if saved.MIME != "image/png" || saved.Size != int64(len(pngHeader)) {
		t.Errorf("saved = %+v", saved)
	}
	if saved.URL() != "/uploads/"+saved.Name {
		t.Errorf("url = %q", saved.URL())
	}
	got, err := os.ReadFile(filepath.Join(dir, saved.Name))
	if err != nil || !bytes.Equal(got, pngHeader) {
		t.Errorf("stored content mismatch: %v", err)
	}
}

func TestSave_RejectsNonImage(t *testing.T) {
	s := New(t.TempDir(), 0)
	for _, body := range [][]byte{
		[]byte("plain text"),
		[]byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>x</script></svg>`),
		nil,
	} {
		if _, err := s.Save("x.png", bytes.NewReader(body)); !errors.Is(err, ErrNotImage) {
			t.Errorf("Save(%q) err = %v, want ErrNotImage", body, err)
		}
	}
}

func TestSave_TooLarge(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 64)
	big := append(append([]byte{}, pngHeader...), make([]byte, 100)...)
	if _, err := s.Save("big.png", bytes.NewReader(big)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("partial file left behind: %v", entries)
	}
}

func TestPath_RejectsTraversal(t *testing.T) {
	s := New(t.TempDir(), 0)
	for _, name := range []string{"", "../x.png", "a/b.png", ".env", ".."} {
		if _, err := s.Path(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Path(%q) err = %v", name, err)
		}
	}
	if _, err := s.Path("ok.png"); err != nil {
		t.Errorf("Path(ok.png) = %v", err)
	}
}
