package lower

import (
	"trans/internal/emit"
	"trans/internal/types"
)

type cleanupKind uint8

const (
	// cleanNormal runs on normal scope exit only.
	cleanNormal cleanupKind = iota + 1
	// cleanUnwind runs on normal exit and while unwinding.
	cleanUnwind
)

type cleanup struct {
	ptr     emit.Value
	ty      types.TypeID
	kind    cleanupKind
	revoked bool
}

// CleanupHandle cancels one scheduled cleanup, typically once ownership
// of a temporary moved into a callee.
type CleanupHandle struct {
	frame *Frame
	scope *cleanupScope
	c     *cleanup
}

// Revoke marks the cleanup as dead. Revoking twice is a no-op.
func (h *CleanupHandle) Revoke() {
	if h == nil || h.c.revoked {
		return
	}
	h.c.revoked = true
	h.frame.invalidateFrom(h.scope)
}

// cleanupScope is one level of the cleanup stack. exits caches, per
// branch target, the block that runs this scope's cleanups and continues
// outwards; pad caches the landing pad for calls made in this scope.
type cleanupScope struct {
	name     string
	cleanups []*cleanup
	exits    map[emit.Block]emit.Block
	pad      emit.Block
}

// live counts unrevoked cleanups that run on the given path.
func (sc *cleanupScope) live(path cleanupKind) int {
	n := 0
	for _, c := range sc.cleanups {
		if !c.revoked && (path == cleanNormal || c.kind == cleanUnwind) {
			n++
		}
	}
	return n
}

func (f *Frame) pushScope(name string) *cleanupScope {
	sc := &cleanupScope{name: name, pad: emit.NoBlock}
	f.scopes = append(f.scopes, sc)
	return sc
}

// schedule registers a drop of *ptr in the innermost scope.
func (f *Frame) schedule(ptr emit.Value, ty types.TypeID, kind cleanupKind) *CleanupHandle {
	sc := f.scopes[len(f.scopes)-1]
	c := &cleanup{ptr: ptr, ty: ty, kind: kind}
	sc.cleanups = append(sc.cleanups, c)
	f.invalidateFrom(sc)
	return &CleanupHandle{frame: f, scope: sc, c: c}
}

// invalidateFrom drops cached exits and pads of sc and every scope nested
// inside it; their chains run through sc's cleanups.
func (f *Frame) invalidateFrom(sc *cleanupScope) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		f.scopes[i].exits = nil
		f.scopes[i].pad = emit.NoBlock
		if f.scopes[i] == sc {
			return
		}
	}
}

// popScope closes sc, which must be innermost, running its cleanups
// inline when the current block is still open.
func (fl *fnLowerer) popScope(sc *cleanupScope) error {
	f := fl.frame
	if len(f.scopes) == 0 || f.scopes[len(f.scopes)-1] != sc {
		inner := "<none>"
		if len(f.scopes) > 0 {
			inner = f.scopes[len(f.scopes)-1].name
		}
		return fatalf(ErrScopeMismatch, fl.def.Span, "%s: popped scope %q while %q is innermost", fl.name, sc.name, inner)
	}
	if !fl.fn.Terminated() {
		if err := fl.runCleanups(fl.fn, sc, cleanNormal); err != nil {
			return err
		}
	}
	f.scopes = f.scopes[:len(f.scopes)-1]
	return nil
}

func (fl *fnLowerer) runCleanups(b emit.Builder, sc *cleanupScope, path cleanupKind) error {
	for i := len(sc.cleanups) - 1; i >= 0; i-- {
		c := sc.cleanups[i]
		if c.revoked || (path == cleanUnwind && c.kind != cleanUnwind) {
			continue
		}
		if err := fl.cx.dropInPlace(b, c.ptr, c.ty, fl.def.Span); err != nil {
			return err
		}
	}
	return nil
}

// branchOut leaves every scope from depth upwards and jumps to target.
func (fl *fnLowerer) branchOut(depth int, target emit.Block) error {
	entry, err := fl.exitChain(depth, target)
	if err != nil {
		return err
	}
	fl.fn.Br(entry)
	return nil
}

// exitChain returns the first block of the path that runs the cleanups of
// scopes[depth:], innermost first, and then reaches target. Blocks are
// built outermost first and cached per scope and successor.
func (fl *fnLowerer) exitChain(depth int, target emit.Block) (emit.Block, error) {
	saved := fl.fn.InsertPoint()
	defer fl.fn.SetInsertPoint(saved)

	next := target
	for _, sc := range fl.frame.scopes[depth:] {
		if sc.live(cleanNormal) == 0 {
			continue
		}
		if blk, ok := sc.exits[next]; ok {
			next = blk
			continue
		}
		blk := fl.fn.NewBlock("cleanup")
		fl.fn.SetInsertPoint(blk)
		if err := fl.runCleanups(fl.fn, sc, cleanNormal); err != nil {
			return emit.NoBlock, err
		}
		fl.fn.Br(next)
		if sc.exits == nil {
			sc.exits = make(map[emit.Block]emit.Block)
		}
		sc.exits[next] = blk
		next = blk
	}
	return next, nil
}

// landingPad returns the unwind target for a call emitted now, or NoBlock
// when nothing has to be cleaned up on unwind.
func (fl *fnLowerer) landingPad() (emit.Block, error) {
	scopes := fl.frame.scopes
	needed := false
	for _, sc := range scopes {
		if sc.live(cleanUnwind) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		return emit.NoBlock, nil
	}
	top := scopes[len(scopes)-1]
	if top.pad != emit.NoBlock {
		return top.pad, nil
	}

	saved := fl.fn.InsertPoint()
	defer fl.fn.SetInsertPoint(saved)
	pad := fl.fn.NewBlock("unwind")
	fl.fn.SetInsertPoint(pad)
	exc := fl.fn.LandingPad()
	for i := len(scopes) - 1; i >= 0; i-- {
		if err := fl.runCleanups(fl.fn, scopes[i], cleanUnwind); err != nil {
			return emit.NoBlock, err
		}
	}
	fl.fn.Resume(exc)
	top.pad = pad
	return pad, nil
}

// emitCall calls fn, through an invoke when unwinding has cleanups to run.
func (fl *fnLowerer) emitCall(fn emit.Value, args []emit.Value, ret emit.Type) (emit.Value, error) {
	pad, err := fl.landingPad()
	if err != nil {
		return emit.Value{}, err
	}
	if pad == emit.NoBlock {
		return fl.fn.Call(fn, args, ret), nil
	}
	cont := fl.fn.NewBlock("invoke.cont")
	v := fl.fn.Invoke(fn, args, ret, cont, pad)
	fl.fn.SetInsertPoint(cont)
	return v, nil
}
