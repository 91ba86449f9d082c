package mrz

import (
	"image"
	"math"
)

// plane is a row-major 8-bit single channel buffer
type plane struct {
	w, h int
	pix  []uint8
}

func newPlane(w, h int) *plane {
	return &plane{w: w, h: h, pix: make([]uint8, w*h)}
}

func planeFromGray(g *image.Gray) *plane {
	b := g.Bounds()
	p := newPlane(b.Dx(), b.Dy())
	for y := 0; y < p.h; y++ {
		copy(p.pix[y*p.w:(y+1)*p.w], g.Pix[y*g.Stride:y*g.Stride+p.w])
	}
	return p
}

func (p *plane) at(x, y int) uint8 {
	return p.pix[y*p.w+x]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// blur3 is a 3x3 Gaussian ([1 2 1]/4 in each direction), edges replicated
func blur3(src *plane) *plane {
	tmp := newPlane(src.w, src.h)
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			l := int(src.at(clamp(x-1, 0, src.w-1), y))
			c := int(src.at(x, y))
			r := int(src.at(clamp(x+1, 0, src.w-1), y))
			tmp.pix[y*src.w+x] = uint8((l + 2*c + r + 2) / 4)
		}
	}
	dst := newPlane(src.w, src.h)
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			u := int(tmp.at(x, clamp(y-1, 0, src.h-1)))
			c := int(tmp.at(x, y))
			d := int(tmp.at(x, clamp(y+1, 0, src.h-1)))
			dst.pix[y*src.w+x] = uint8((u + 2*c + d + 2) / 4)
		}
	}
	return dst
}

// rankFilter applies a separable max (dilate) or min (erode) over a kw x kh
// rectangle centred on each pixel. Window parts outside the image are ignored.
func rankFilter(src *plane, kw, kh int, dilation bool) *plane {
	better := func(a, b uint8) bool {
		if dilation {
			return a > b
		}
		return a < b
	}
	ax, ay := kw/2, kh/2

	tmp := newPlane(src.w, src.h)
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			best := src.at(x, y)
			for i := clamp(x-ax, 0, src.w-1); i <= clamp(x+kw-1-ax, 0, src.w-1); i++ {
				if v := src.at(i, y); better(v, best) {
					best = v
				}
			}
			tmp.pix[y*src.w+x] = best
		}
	}
	dst := newPlane(src.w, src.h)
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			best := tmp.at(x, y)
			for j := clamp(y-ay, 0, src.h-1); j <= clamp(y+kh-1-ay, 0, src.h-1); j++ {
				if v := tmp.at(x, j); better(v, best) {
					best = v
				}
			}
			dst.pix[y*src.w+x] = best
		}
	}
	return dst
}

func dilate(src *plane, kw, kh int) *plane { return rankFilter(src, kw, kh, true) }
func erode(src *plane, kw, kh int) *plane  { return rankFilter(src, kw, kh, false) }

// closing is dilation followed by erosion
func closing(src *plane, kw, kh int) *plane {
	return erode(dilate(src, kw, kh), kw, kh)
}

// blackhat is closing minus the source: dark detail on a light background
func blackhat(src *plane, kw, kh int) *plane {
	closed := closing(src, kw, kh)
	dst := newPlane(src.w, src.h)
	for i, v := range closed.pix {
		if v > src.pix[i] {
			dst.pix[i] = v - src.pix[i]
		}
	}
	return dst
}

// gradientX is the absolute horizontal Scharr derivative, min-max
// normalized to 0..255
func gradientX(src *plane) *plane {
	grad := make([]float64, src.w*src.h)
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for y := 0; y < src.h; y++ {
		up, down := clamp(y-1, 0, src.h-1), clamp(y+1, 0, src.h-1)
		for x := 0; x < src.w; x++ {
			l, r := clamp(x-1, 0, src.w-1), clamp(x+1, 0, src.w-1)
			g := 3*(float64(src.at(r, up))-float64(src.at(l, up))) +
				10*(float64(src.at(r, y))-float64(src.at(l, y))) +
				3*(float64(src.at(r, down))-float64(src.at(l, down)))
			g = math.Abs(g)
			grad[y*src.w+x] = g
			lo = math.Min(lo, g)
			hi = math.Max(hi, g)
		}
	}

	dst := newPlane(src.w, src.h)
	if hi <= lo {
		return dst
	}
	for i, g := range grad {
		dst.pix[i] = uint8(255 * (g - lo) / (hi - lo))
	}
	return dst
}

// otsu returns the threshold maximizing between-class variance
func otsu(src *plane) uint8 {
	var hist [256]int
	for _, v := range src.pix {
		hist[v]++
	}
	total := len(src.pix)
	sum := 0.0
	for i, n := range hist {
		sum += float64(i * n)
	}

	var sumB float64
	var wB int
	var best float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// binarize sets pixels above t to 255 and the rest to 0
func binarize(src *plane, t uint8) *plane {
	dst := newPlane(src.w, src.h)
	for i, v := range src.pix {
		if v > t {
			dst.pix[i] = 255
		}
	}
	return dst
}

// components returns the bounding boxes of 8-connected foreground regions
func components(src *plane) []image.Rectangle {
	seen := make([]bool, len(src.pix))
	var boxes []image.Rectangle
	var stack []int

	for start, v := range src.pix {
		if v == 0 || seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		box := image.Rect(start%src.w, start/src.w, start%src.w+1, start/src.w+1)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%src.w, i/src.w
			box = box.Union(image.Rect(x, y, x+1, y+1))

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= src.w || ny >= src.h {
						continue
					}
					j := ny*src.w + nx
					if src.pix[j] != 0 && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		boxes = append(boxes, box)
	}
	return boxes
}
