package boxes

import bmff "github.com/mildsunrise/mp4dissect"

// Context is the cross-box state threaded through parsing: the enclosing
// track's handler type, its timescale, and the default per-sample IV size
// a tenc box established earlier in the same track. It is passed by value
// and returned by value — entering a trak/meta subtree starts a fresh
// frame, leaving it restores the caller's. No field here is ever mutated
// through a pointer or package-level variable.
type Context struct {
	HandlerType       bmff.BoxType
	HasHandlerType    bool
	Timescale         uint32
	HasTimescale      bool
	TencDefaultIVSize uint8
	HasTencDefaultIV  bool

	// SencIVSizeOverride comes from --senc-per-sample-iv and takes
	// precedence over a TencDefaultIVSize when both are present.
	SencIVSizeOverride uint8
	HasSencIVOverride  bool

	// base is added to every Reader-relative offset before it reaches the
	// emitter, so that a box loaded into its own buffer (as the top-level
	// driver does) still reports its true position in the original stream.
	base int64
}

// WithBase returns a copy of c with its offset base set to base. The
// top-level driver calls this once per loaded box; every descendant
// inherits it automatically since Context flows by value through Dispatch.
func (c Context) WithBase(base int64) Context {
	c.base = base
	return c
}

// IVSize resolves the per-sample IV size to use for a senc box: the
// user override wins, then a tenc default seen earlier in this track,
// then "unknown" (ok=false).
func (c Context) IVSize() (size uint8, ok bool) {
	if c.HasSencIVOverride {
		return c.SencIVSizeOverride, true
	}
	if c.HasTencDefaultIV {
		return c.TencDefaultIVSize, true
	}
	return 0, false
}
