// Package loopdetect suppresses runaway tool-call cycles during a turn.
//
// It tracks a call-count histogram keyed by a normalized (tool, args)
// signature plus a bounded FIFO window of the most recent calls, and raises
// soft (advisory, cooldown-gated) and hard (blocking) warnings once
// thresholds are crossed. Modeled on the call-count/TTL bookkeeping shape of
// internal/cache.DedupeCache, generalized from a boolean "seen" cache into a
// counting one with an additional immediate-repeat check.
package loopdetect

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultMaxSame is the soft threshold (advisory warnings begin here).
const DefaultMaxSame = 5

// DefaultWindow is the size of the recent-call FIFO window.
const DefaultWindow = 10

// WarningCooldown is the minimum spacing between soft advisory warnings
// for the same signature.
const WarningCooldown = 30 * time.Second

// rootSentinel is the canonical value that "." / "" / "./" / absent collapse to.
const rootSentinel = "__ROOT__"

// Config configures a Detector's thresholds.
type Config struct {
	// MaxSame is the soft threshold. Zero uses DefaultMaxSame.
	MaxSame int
	// Window is the size of the recent-call FIFO window. Zero uses DefaultWindow.
	Window int
	// Enabled disables all detection when false (record_call becomes a no-op).
	Enabled bool
	// Interactive indicates a human is present to see advisory warnings.
	Interactive bool
}

// Warning describes a loop-detection advisory or hard-stop event.
type Warning struct {
	HardStop    bool
	Tool        string
	RepeatCount int
	Message     string
}

type callRecord struct {
	tool string
	sig  string
}

// Detector tracks per-turn tool-call repetition. Not safe for concurrent use
// across goroutines without external synchronization; the turn engine is its
// single owner per spec.
type Detector struct {
	mu sync.Mutex

	cfg Config

	counts       map[string]int
	lastWarnedAt map[string]time.Time
	window       []callRecord
}

// New creates a Detector with the given config, applying defaults for zero fields.
func New(cfg Config) *Detector {
	if cfg.MaxSame <= 0 {
		cfg.MaxSame = DefaultMaxSame
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Detector{
		cfg:          cfg,
		counts:       make(map[string]int),
		lastWarnedAt: make(map[string]time.Time),
	}
}

// Signature computes the normalized (tool, args) signature used as the
// bucket key for repetition counting.
func Signature(tool string, args json.RawMessage) string {
	normalized := normalizeArgs(tool, args)
	h := sha256.Sum256([]byte(tool + "\x00" + normalized))
	return hex.EncodeToString(h[:])
}

// RecordCall records an observed tool call and returns a Warning if a
// threshold was crossed by this call. A nil return means no warning.
func (d *Detector) RecordCall(tool string, args json.RawMessage) *Warning {
	return d.recordCallAt(tool, args, time.Now())
}

func (d *Detector) recordCallAt(tool string, args json.RawMessage, now time.Time) *Warning {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.cfg.Enabled {
		return nil
	}

	sig := Signature(tool, args)
	d.counts[sig]++
	count := d.counts[sig]

	d.window = append(d.window, callRecord{tool: tool, sig: sig})
	if len(d.window) > d.cfg.Window {
		d.window = d.window[len(d.window)-d.cfg.Window:]
	}

	hardThreshold := 2 * d.cfg.MaxSame

	if d.lastThreeIdentical(sig) {
		return &Warning{
			HardStop:    true,
			Tool:        tool,
			RepeatCount: count,
			Message:     "HARD STOP: " + tool + " called identically 3 times in a row",
		}
	}

	if count >= hardThreshold {
		return &Warning{
			HardStop:    true,
			Tool:        tool,
			RepeatCount: count,
			Message:     "HARD STOP: " + tool + " repeated " + strconv.Itoa(count) + " times",
		}
	}

	if count >= d.cfg.MaxSame {
		last, warned := d.lastWarnedAt[sig]
		if !warned || now.Sub(last) >= WarningCooldown {
			d.lastWarnedAt[sig] = now
			return &Warning{
				HardStop:    false,
				Tool:        tool,
				RepeatCount: count,
				Message:     "repeated tool call: " + tool + " called " + strconv.Itoa(count) + " times",
			}
		}
	}

	return nil
}

// lastThreeIdentical reports whether the trailing three entries of the
// window are all the given signature.
func (d *Detector) lastThreeIdentical(sig string) bool {
	n := len(d.window)
	if n < 3 {
		return false
	}
	for _, rec := range d.window[n-3:] {
		if rec.sig != sig {
			return false
		}
	}
	return true
}

// IsHardLimitExceeded reports whether the given tool's most-repeated
// signature has reached the hard threshold (2x soft).
func (d *Detector) IsHardLimitExceeded(tool string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	hardThreshold := 2 * d.cfg.MaxSame
	for sig, count := range d.counts {
		if count >= hardThreshold && d.sigBelongsToTool(sig, tool) {
			return true
		}
	}
	return false
}

// sigBelongsToTool checks window history for a signature's owning tool name,
// since signatures hash tool+args together.
func (d *Detector) sigBelongsToTool(sig, tool string) bool {
	for _, rec := range d.window {
		if rec.sig == sig {
			return rec.tool == tool
		}
	}
	return false
}

// ResetTool clears counts for all signatures belonging to a tool.
func (d *Detector) ResetTool(tool string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, rec := range d.window {
		if rec.tool == tool {
			delete(d.counts, rec.sig)
			delete(d.lastWarnedAt, rec.sig)
		}
	}
	kept := d.window[:0:0]
	for _, rec := range d.window {
		if rec.tool != tool {
			kept = append(kept, rec)
		}
	}
	d.window = kept
}

// Reset clears all detector state.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts = make(map[string]int)
	d.lastWarnedAt = make(map[string]time.Time)
	d.window = nil
}

// normalizeArgs canonicalizes JSON args per the signature contract:
// for list_files, "." / "" / "./" / absent path collapse to rootSentinel;
// pagination fields (page, per_page) are stripped before hashing; all other
// tools canonicalize verbatim.
func normalizeArgs(tool string, args json.RawMessage) string {
	var m map[string]any
	if len(args) == 0 {
		m = map[string]any{}
	} else if err := json.Unmarshal(args, &m); err != nil {
		// Not a JSON object; hash the raw bytes verbatim.
		return string(args)
	}

	delete(m, "page")
	delete(m, "per_page")

	if tool == "list_files" {
		path, _ := m["path"].(string)
		switch strings.TrimSpace(path) {
		case "", ".", "./":
			m["path"] = rootSentinel
		}
		if _, ok := m["path"]; !ok {
			m["path"] = rootSentinel
		}
	}

	return canonicalJSON(m)
}

// canonicalJSON renders a map with keys sorted for stable hashing.
func canonicalJSON(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}
