package glrender

import (
	"errors"
	"image"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfmarch/glbuild"
	"github.com/soypat/sdfmarch/gleval"
	"golang.org/x/sync/errgroup"
)

// FrameStats summarizes the last rendered frame.
type FrameStats struct {
	Pixels      int
	Hits        int
	Skipped     int
	Evaluations uint64
}

// Renderer sphere traces a distance field once per pixel on the CPU. Rows are
// split into bands, one per worker, each marched on its own goroutine with its
// own buffers. Shading starts after every band has finished marching so grid
// shading can difference neighbouring hit positions the way fwidth does in a
// fragment shader.
//
// With a single worker all evaluation happens on the calling goroutine, which
// allows fields that must be evaluated on a specific thread such as
// [gleval.SDF3Compute].
type Renderer struct {
	cfg     MarchConfig
	bands   []band
	marches []March
	width   int
	height  int
	stats   FrameStats
}

type band struct {
	y0, y1  int // Fragment rows [y0,y1).
	vp      gleval.VecPool
	scratch marchScratch
	evals   uint64
	hits    int
	skipped int
}

// NewRenderer returns a renderer with the given march configuration and number of workers.
func NewRenderer(cfg MarchConfig, workers int) (*Renderer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, errors.New("need at least one worker")
	}
	return &Renderer{
		cfg:   cfg,
		bands: make([]band, workers),
	}, nil
}

// Config returns the march configuration of the renderer.
func (r *Renderer) Config() MarchConfig { return r.cfg }

// Stats returns statistics of the last successfully rendered frame.
func (r *Renderer) Stats() FrameStats { return r.stats }

// Render draws one frame of sdf as seen with uniforms u into img. Image row j
// corresponds to fragment row H-1-j so that the image is not upside down.
// The whole frame is marched before Render returns.
func (r *Renderer) Render(img *image.RGBA, sdf gleval.SDF3, u FrameUniforms) error {
	if img == nil || sdf == nil {
		return errors.New("nil image or SDF")
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return errors.New("empty image")
	}
	r.layout(w, h)
	for i := range r.bands {
		// Bands without rows are not marched and must not report the last frame.
		b := &r.bands[i]
		b.evals, b.hits, b.skipped = 0, 0, 0
	}
	err := r.forEachBand(func(b *band) error {
		return r.marchBand(b, sdf, u)
	})
	if err != nil {
		return err
	}
	// Every march is final beyond this point; shading only reads.
	err = r.forEachBand(func(b *band) error {
		r.shadeBand(b, img)
		return nil
	})
	if err != nil {
		return err
	}
	r.stats = FrameStats{Pixels: w * h}
	for i := range r.bands {
		b := &r.bands[i]
		r.stats.Evaluations += b.evals
		r.stats.Hits += b.hits
		r.stats.Skipped += b.skipped
	}
	return nil
}

// March returns the march result of fragment fx, fy of the last frame.
func (r *Renderer) March(fx, fy int) March {
	return r.marches[fy*r.width+fx]
}

func (r *Renderer) layout(w, h int) {
	if w == r.width && h == r.height {
		return
	}
	r.width, r.height = w, h
	if cap(r.marches) < w*h {
		r.marches = make([]March, w*h)
	}
	r.marches = r.marches[:w*h]
	nb := len(r.bands)
	for i := range r.bands {
		r.bands[i].y0 = i * h / nb
		r.bands[i].y1 = (i + 1) * h / nb
	}
}

func (r *Renderer) forEachBand(fn func(b *band) error) error {
	if len(r.bands) == 1 {
		return fn(&r.bands[0])
	}
	var g errgroup.Group
	for i := range r.bands {
		b := &r.bands[i]
		if b.y0 == b.y1 {
			continue
		}
		g.Go(func() error { return fn(b) })
	}
	return g.Wait()
}

// marchBand generates and marches the rays of the band's rows. Marches are
// stored indexed by fragment coordinate, row 0 at the bottom.
func (r *Renderer) marchBand(b *band, sdf gleval.SDF3, u FrameUniforms) error {
	w := r.width
	rays := r.marches[b.y0*w : b.y1*w]
	for fy := b.y0; fy < b.y1; fy++ {
		py := float32(fy) + 0.5
		row := rays[(fy-b.y0)*w : (fy-b.y0+1)*w]
		for fx := range row {
			dir := u.Basis.Ray(float32(fx)+0.5, py)
			row[fx] = r.cfg.start(u.Origin, dir)
		}
	}
	evals, err := r.cfg.marchBatch(sdf, rays, &b.scratch, &b.vp)
	b.evals = evals
	if err != nil {
		return err
	}
	for i := range rays {
		if rays[i].Hit {
			b.hits++
		}
		if rays[i].Skipped {
			b.skipped++
		}
	}
	return nil
}

func (r *Renderer) shadeBand(b *band, img *image.RGBA) {
	w, h := r.width, r.height
	grid := r.cfg.Shade == glbuild.ShadeGrid
	for fy := b.y0; fy < b.y1; fy++ {
		j := h - 1 - fy
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+j)
		for fx := 0; fx < w; fx++ {
			m := &r.marches[fy*w+fx]
			var fw ms3.Vec
			if grid && m.Hit {
				fw = r.fwidth(fx, fy)
			}
			cr, cg, cb := rgba8(r.cfg.Color(m, fw))
			px := img.Pix[off+4*fx : off+4*fx+4 : off+4*fx+4]
			px[0], px[1], px[2], px[3] = cr, cg, cb, 255
		}
	}
}

// fwidth returns |dFdx|+|dFdy| of the march position at fragment fx, fy using
// differences within 2x2 pixel quads, as GPU derivatives are computed.
func (r *Renderer) fwidth(fx, fy int) ms3.Vec {
	dx := r.quadDiff(fx, r.width, func(x int) ms3.Vec { return r.marches[fy*r.width+x].Pos })
	dy := r.quadDiff(fy, r.height, func(y int) ms3.Vec { return r.marches[y*r.width+fx].Pos })
	return ms3.Add(ms3.AbsElem(dx), ms3.AbsElem(dy))
}

// quadDiff returns the difference between the odd and even member of the quad
// pair i belongs to along an axis of length n. An even index at the end of an
// odd length axis pairs with its preceding neighbour.
func (r *Renderer) quadDiff(i, n int, at func(int) ms3.Vec) ms3.Vec {
	even := i &^ 1
	if even+1 < n {
		return ms3.Sub(at(even+1), at(even))
	} else if i > 0 {
		return ms3.Sub(at(i), at(i-1))
	}
	return ms3.Vec{}
}
