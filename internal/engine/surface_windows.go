//go:build windows

package engine

type hwnd uint64

func (w hwnd) Kind() SurfaceKind { return SurfaceHWND }
func (w hwnd) Handle() uint64    { return uint64(w) }

// NewSurface wraps a Win32 HWND. A zero handle returns nil.
func NewSurface(handle uint64) Surface {
	if handle == 0 {
		return nil
	}
	return hwnd(handle)
}
