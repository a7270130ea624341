// Package imagehash computes and compares perceptual image hashes for the
// by-image-hash partition strategy. It wraps goimagehash's gradient
// algorithm, the closest Go equivalent of the gradient hash the original
// tool computed through Rust's img_hash crate.
package imagehash

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
)

// ErrNotAnImage indicates the bytes could not be decoded as any registered
// image format.
var ErrNotAnImage = errors.New("imagehash: not a decodable image")

// Hash is a computed perceptual hash, opaque outside this package except for
// comparison via Distance.
type Hash struct {
	inner *goimagehash.ImageHash
}

// Compute decodes data as an image and computes its gradient perceptual
// hash. It returns ErrNotAnImage if data is not a recognized image format.
func Compute(data []byte) (Hash, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %w", ErrNotAnImage, err)
	}

	h, err := goimagehash.GradientHash(img)
	if err != nil {
		return Hash{}, fmt.Errorf("imagehash: compute gradient hash: %w", err)
	}

	return Hash{inner: h}, nil
}

// Distance returns the Hamming distance between two hashes: the number of
// differing bits. Zero means the images are perceptually identical under
// this algorithm.
func (h Hash) Distance(other Hash) (int, error) {
	if h.inner == nil || other.inner == nil {
		return 0, errors.New("imagehash: distance of zero-value hash")
	}

	return h.inner.Distance(other.inner)
}

// WithinThreshold reports whether h and other are within the given maximum
// Hamming distance, inclusive.
func WithinThreshold(h, other Hash, threshold int) (bool, error) {
	distance, err := h.Distance(other)
	if err != nil {
		return false, err
	}

	return distance <= threshold, nil
}
