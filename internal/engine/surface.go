package engine

// SurfaceKind names the native handle type a Surface carries.
type SurfaceKind string

const (
	SurfaceX11    SurfaceKind = "xid"      // X11 window id (Linux, BSD)
	SurfaceHWND   SurfaceKind = "hwnd"     // Win32 window handle
	SurfaceNSView SurfaceKind = "nsobject" // Cocoa NSView pointer
)

// Surface is a native window the engine renders video into. The concrete
// variant is chosen per operating system at build time by NewSurface.
type Surface interface {
	Kind() SurfaceKind
	Handle() uint64
}
