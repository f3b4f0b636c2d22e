// Package fft implements the in-place radix-2 Cooley-Tukey transform and
// Hann windowing the noise reducer runs every frame on (§4.8).
package fft

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/fieldrec/fieldrec/pcm"
)

// Forward runs the FFT in place on parallel real/imag arrays of
// power-of-two length N, per §4.8. Rejects any other length with
// pcm.ErrInvalidLength.
func Forward(real, imag []float64) error {
	return transform(real, imag, -1)
}

// Inverse runs the inverse FFT in place, dividing all outputs by N.
func Inverse(real, imag []float64) error {
	if err := transform(real, imag, 1); err != nil {
		return err
	}
	n := float64(len(real))
	for i := range real {
		real[i] /= n
		imag[i] /= n
	}
	return nil
}

// sign is -1 for forward, +1 for inverse, matching §4.8's
// theta = ±2π/size convention.
func transform(real, imag []float64, sign float64) error {
	n := len(real)
	if len(imag) != n {
		return fmt.Errorf("%w: real/imag length mismatch", pcm.ErrInvalidLength)
	}
	if n == 0 || n&(n-1) != 0 {
		return fmt.Errorf("%w: length %d is not a power of two", pcm.ErrInvalidLength, n)
	}

	bitReverse(real, imag)

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		theta := sign * 2 * math.Pi / float64(size)
		wReal, wImag := math.Cos(theta), math.Sin(theta)

		for start := 0; start < n; start += size {
			curReal, curImag := 1.0, 0.0
			for k := 0; k < half; k++ {
				i, j := start+k, start+k+half

				tReal := curReal*real[j] - curImag*imag[j]
				tImag := curReal*imag[j] + curImag*real[j]

				real[j] = real[i] - tReal
				imag[j] = imag[i] - tImag
				real[i] += tReal
				imag[i] += tImag

				// Twiddle recurrence: w_{k+1} = w_k * (cos(theta) + j*sin(theta)).
				curReal, curImag = curReal*wReal-curImag*wImag, curReal*wImag+curImag*wReal
			}
		}
	}
	return nil
}

func bitReverse(real, imag []float64) {
	n := len(real)
	logN := bits.TrailingZeros(uint(n))
	for i := 0; i < n; i++ {
		j := reverseBits(uint(i), logN)
		if j > uint(i) {
			real[i], real[j] = real[j], real[i]
			imag[i], imag[j] = imag[j], imag[i]
		}
	}
}

func reverseBits(x uint, bitsCount int) uint {
	var r uint
	for i := 0; i < bitsCount; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}

// HannWindow returns a length-n Hann window, per §4.8:
// w[i] = 0.5*(1 - cos(2*pi*i/(n-1))).
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
