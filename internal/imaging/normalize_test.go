package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func decodeJPEG(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("output is not jpeg: %v", err)
	}
	return img
}

func TestNormalize_FlattensTransparencyOntoWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 32, 16))
	for x := 0; x < 8; x++ {
		for y := 0; y < 16; y++ {
			src.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}

	out, err := Normalize(encodePNG(t, src), DefaultMaxWidth, DefaultQuality)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	img := decodeJPEG(t, out)
	r, g, b, _ := img.At(28, 8).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Fatalf("transparent area not white: %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestNormalize_PalettedIsConverted(t *testing.T) {
	pal := color.Palette{color.Transparent, color.RGBA{G: 255, A: 255}}
	src := image.NewPaletted(image.Rect(0, 0, 8, 8), pal)
	src.SetColorIndex(1, 1, 1)

	if !needsFlatten(src) {
		t.Fatalf("paletted image must be flattened")
	}
	if _, err := Normalize(encodePNG(t, src), DefaultMaxWidth, DefaultQuality); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}

func TestNormalize_DownscalesWideImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2400, 600))

	out, err := Normalize(encodePNG(t, src), 1200, DefaultQuality)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != 1200 || b.Dy() != 300 {
		t.Fatalf("size=%dx%d want 1200x300", b.Dx(), b.Dy())
	}
}

func TestNormalize_KeepsNarrowImages(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 640, 480))

	out, err := Normalize(encodePNG(t, src), 1200, DefaultQuality)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if b := decodeJPEG(t, out).Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Fatalf("size=%v", b)
	}
}

func TestNormalize_RejectsGarbage(t *testing.T) {
	if _, err := Normalize(strings.NewReader("definitely not an image"), 1200, 60); err == nil {
		t.Fatalf("expected decode error")
	}
}

// pngHeader is a PNG signature plus an IHDR chunk claiming w x h RGBA pixels,
// with no image data after it.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:4], w)
	binary.BigEndian.PutUint32(data[4:8], h)
	data[8] = 8 // bit depth
	data[9] = 6 // truecolor with alpha

	chunk := append([]byte("IHDR"), data...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestNormalize_RejectsOversizedDimensions(t *testing.T) {
	_, err := Normalize(bytes.NewReader(pngHeader(60000, 60000)), 1200, 60)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("err=%v", err)
	}
}

func TestNormalize_HeaderCheckKeepsStreamIntact(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for i := range src.Pix {
		src.Pix[i] = 0xFF
	}

	out, err := Normalize(encodePNG(t, src), 1200, 60)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if b := decodeJPEG(t, out).Bounds(); b.Dx() != 300 || b.Dy() != 200 {
		t.Fatalf("size=%v", b)
	}
}
