//go:build !windows && !darwin

package engine

type x11Window uint64

func (w x11Window) Kind() SurfaceKind { return SurfaceX11 }
func (w x11Window) Handle() uint64    { return uint64(w) }

// NewSurface wraps an X11 window id. A zero handle returns nil.
func NewSurface(handle uint64) Surface {
	if handle == 0 {
		return nil
	}
	return x11Window(handle)
}
