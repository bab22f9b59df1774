//go:build darwin

package engine

type nsView uint64

func (v nsView) Kind() SurfaceKind { return SurfaceNSView }
func (v nsView) Handle() uint64    { return uint64(v) }

// NewSurface wraps an NSView pointer. A zero handle returns nil.
func NewSurface(handle uint64) Surface {
	if handle == 0 {
		return nil
	}
	return nsView(handle)
}
