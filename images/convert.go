package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ToBGR converts any image.Image into an 8-bit, 3-channel BGR Mat.
//
// Alpha is discarded after the color model conversion, so partially transparent
// pixels keep their premultiplied values.
//
// Arguments:
// - img: The source image. Its bounds may start anywhere.
//
// Returns:
// - gocv.Mat: A new Mat owned by the caller, who must Close it.
// - error: If the image is empty or the Mat cannot be created.
func ToBGR(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return gocv.NewMat(), errors.New("images: empty image")
	}

	width, height := bounds.Dx(), bounds.Dy()
	data := make([]byte, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			data = append(data, uint8(b>>8), uint8(g>>8), uint8(r>>8))
		}
	}

	return FromBGRBytes(data, width, height)
}

// FromBGRBytes copies a packed bgr24 buffer into a new Mat.
//
// The returned Mat does not reference data, so the buffer may be reused.
func FromBGRBytes(data []byte, width, height int) (gocv.Mat, error) {
	if len(data) != width*height*3 {
		return gocv.NewMat(), errors.Errorf("images: buffer of %d bytes does not hold %dx%d bgr24", len(data), width, height)
	}
	view, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "images: new mat from bytes")
	}
	defer view.Close()

	return view.Clone(), nil
}

// Encode writes img to w in the given format.
//
// PNG and JPEG use the standard library encoders; WebP goes through OpenCV.
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case FormatPNG:
		return errors.Wrap(png.Encode(w, img), "images: encode png")
	case FormatJPEG:
		return errors.Wrap(jpeg.Encode(w, img, &jpeg.Options{Quality: 90}), "images: encode jpeg")
	case FormatWebP:
		mat, err := ToBGR(img)
		if err != nil {
			return err
		}
		defer mat.Close()

		buf, err := gocv.IMEncode(gocv.FileExt(FormatWebP.Extension()), mat)
		if err != nil {
			return errors.Wrap(err, "images: encode webp")
		}
		defer buf.Close()

		_, err = io.Copy(w, bytes.NewReader(buf.GetBytes()))
		return errors.Wrap(err, "images: write webp")
	}
	return errors.Errorf("images: unsupported format %q", format)
}
