// Package mnist decodes the gzip-compressed idx files of the MNIST dataset
// and scores classifier output against labels.
package mnist

import (
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// Image geometry and idx magic numbers.
const (
	ImageSize   = 28
	NumChannels = 1
	NumLabels   = 10
	PixelDepth  = 255

	imagesMagic = 2051
	labelsMagic = 2049
)

// ErrFormat is returned for input that is not a well-formed idx file.
var ErrFormat = errors.New("mnist: invalid idx file")

// ReadImages decodes a gzip idx3 image file into a [n, 28, 28, 1] tensor with
// pixels scaled to (x - 127.5) / 255. n <= 0 reads every image in the file.
// A file holding no images is an error.
func ReadImages(r io.Reader, n int) (*tensor.Tensor, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	defer zr.Close()

	var hdr struct {
		Magic, Count, Rows, Cols uint32
	}
	if err := binary.Read(zr, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrFormat, err)
	}
	if hdr.Magic != imagesMagic {
		return nil, fmt.Errorf("%w: magic %d, want %d", ErrFormat, hdr.Magic, imagesMagic)
	}
	if hdr.Rows != ImageSize || hdr.Cols != ImageSize {
		return nil, fmt.Errorf("%w: image size %dx%d, want %dx%d",
			ErrFormat, hdr.Rows, hdr.Cols, ImageSize, ImageSize)
	}

	n, err = clampCount(n, hdr.Count)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no images", ErrFormat)
	}

	buf, err := readPayload(zr, int64(n)*ImageSize*ImageSize*NumChannels)
	if err != nil {
		return nil, fmt.Errorf("%w: pixels: %w", ErrFormat, err)
	}

	out := tensor.New(tensor.Shape{n, ImageSize, ImageSize, NumChannels})
	data := out.Data()
	for i, px := range buf {
		data[i] = (float64(px) - PixelDepth/2.0) / PixelDepth
	}
	return out, nil
}

// ReadLabels decodes a gzip idx1 label file. n <= 0 reads every label.
func ReadLabels(r io.Reader, n int) ([]int, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	defer zr.Close()

	var hdr struct {
		Magic, Count uint32
	}
	if err := binary.Read(zr, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrFormat, err)
	}
	if hdr.Magic != labelsMagic {
		return nil, fmt.Errorf("%w: magic %d, want %d", ErrFormat, hdr.Magic, labelsMagic)
	}

	n, err = clampCount(n, hdr.Count)
	if err != nil {
		return nil, err
	}

	buf, err := readPayload(zr, int64(n))
	if err != nil {
		return nil, fmt.Errorf("%w: labels: %w", ErrFormat, err)
	}

	labels := make([]int, n)
	for i, b := range buf {
		labels[i] = int(b)
	}
	return labels, nil
}

func clampCount(n int, avail uint32) (int, error) {
	if n <= 0 {
		return int(avail), nil
	}
	if uint64(n) > uint64(avail) {
		return 0, fmt.Errorf("%w: requested %d items, file holds %d", ErrFormat, n, avail)
	}
	return n, nil
}

// readPayload reads exactly size bytes. The buffer grows with the data
// actually present, so a corrupt header count fails on EOF instead of
// forcing a huge allocation up front.
func readPayload(r io.Reader, size int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) < size {
		return nil, fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, len(buf), size)
	}
	return buf, nil
}

// Argmax returns the index of the largest value in each row of a [N, K]
// tensor. Ties resolve to the lowest index.
func Argmax(t *tensor.Tensor) ([]int, error) {
	if t.Rank() != 2 {
		return nil, fmt.Errorf("argmax: expected [N, K] tensor, got %v", t.Shape())
	}
	rows, cols := t.Dim(0), t.Dim(1)
	data := t.Data()

	out := make([]int, rows)
	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]
		best, bestV := 0, math.Inf(-1)
		for k, v := range row {
			if v > bestV {
				best, bestV = k, v
			}
		}
		out[r] = best
	}
	return out, nil
}

// ErrorRate returns the percentage of predictions that differ from labels.
func ErrorRate(predictions, labels []int) (float64, error) {
	if len(predictions) != len(labels) {
		return 0, fmt.Errorf("error rate: %d predictions for %d labels", len(predictions), len(labels))
	}
	if len(labels) == 0 {
		return 0, nil
	}
	correct := 0
	for i, p := range predictions {
		if p == labels[i] {
			correct++
		}
	}
	return 100.0 - 100.0*float64(correct)/float64(len(labels)), nil
}
