package kernels

import (
	"image"
	"math/rand"
	"testing"
)

func genRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func BenchmarkBlur_640x480_r2(b *testing.B) {
	img := genRGBA(640, 480)
	opt := Options{Radius: 2, Edge: EdgeClamp, Pool: &Pool{}}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = BoxBlur(img, opt)
	}
}

func BenchmarkBlur_640x480_r2_Parallel(b *testing.B) {
	img := genRGBA(640, 480)
	opt := Options{Radius: 2, Edge: EdgeClamp, Pool: &Pool{}, Parallel: true}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = BoxBlur(img, opt)
	}
}

func BenchmarkBlur_1080p_r7_Parallel(b *testing.B) {
	img := genRGBA(1920, 1080)
	opt := Options{Radius: 7, Edge: EdgeClamp, Pool: &Pool{}, Parallel: true}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = BoxBlur(img, opt)
	}
}
