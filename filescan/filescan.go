// Package filescan inspects untrusted upload content and produces a safety
// verdict before any byte reaches a storage backend.
//
// The validator is pure: it performs no I/O and touches no global state, so
// the whole check battery is unit-testable with in-memory buffers. Checks run
// in a fixed order and short-circuit on the first hard failure:
//
//  1. filename safety (traversal, control chars, disguised extensions)
//  2. content-hash blocklist
//  3. magic-number vs declared-type consistency
//  4. dangerous-content analysis (scripts, SQL, XXE, SSI, macros)
//  5. polyglot signatures
//  6. entropy measurement (soft)
//  7. size consistency (soft, except zero-byte)
//
// Scoring starts at 100. Hard failures flip the verdict to unsafe; blocklist
// and polyglot hits zero the score outright. Soft findings subtract fixed
// penalties, and a score under the safety floor is unsafe even when no
// single hard rule fired.
package filescan

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/deedvault/fileguard/hasher"
)

const (
	// safetyFloor is the minimum score a file may carry and still be safe.
	safetyFloor = 30

	maxScore = 100

	penaltyHighEntropy = 15
	penaltySizeDrift   = 10
	penaltyDocWarning  = 10

	// sizeDriftTolerance is the accepted relative divergence between the
	// declared size and the actual buffer length.
	sizeDriftTolerance = 0.10
)

// File is the validator's input: a fully buffered upload with the metadata
// the client declared for it.
type File struct {
	Name         string
	DeclaredMIME string
	DeclaredSize int64
	Data         []byte
}

// Result is the outcome of a validation run.
type Result struct {
	// Safe is false when any hard check failed or the score fell below
	// the safety floor.
	Safe bool

	// Score is the residual trust in the file, clamped to 0..100.
	Score int

	// Warnings lists soft findings that reduced the score.
	Warnings []string

	// Errors lists hard findings. Non-empty implies Safe == false.
	Errors []string

	// Reason is the single human-readable rejection cause when unsafe.
	Reason string
}

// Config controls which checks a Validator runs and with what inputs.
type Config struct {
	// HashAlgorithm selects the digest used for blocklist matching.
	HashAlgorithm hasher.Algorithm

	// BlockedHashes is the known-malicious digest set (lowercase hex).
	BlockedHashes []string

	// SkipMagicCheck disables the magic-number consistency check.
	SkipMagicCheck bool

	// SkipContentCheck disables dangerous-content analysis.
	SkipContentCheck bool
}

// Validator runs the content-security check battery.
// A Validator is immutable and safe for concurrent use.
type Validator struct {
	cfg     Config
	blocked map[string]struct{}
}

// New creates a Validator from cfg.
func New(cfg Config) *Validator {
	return &Validator{
		cfg: cfg,
		blocked: lo.SliceToMap(cfg.BlockedHashes, func(h string) (string, struct{}) {
			return h, struct{}{}
		}),
	}
}

// Validate inspects f and returns its safety verdict.
func (v *Validator) Validate(f File) Result {
	r := &Result{Safe: true, Score: maxScore}

	if reason := checkFilename(f.Name); reason != "" {
		return r.fail(reason, 0)
	}

	if v.hashBlocked(f.Data) {
		return r.fail("content hash matches known-malicious blocklist", maxScore)
	}

	if !v.cfg.SkipMagicCheck {
		if reason := checkMagic(f); reason != "" {
			return r.fail(reason, 50)
		}
	}

	if !v.cfg.SkipContentCheck {
		if reason := checkContent(f, r); reason != "" {
			return r.fail(reason, 50)
		}
	}

	if reason := checkPolyglot(f.Data); reason != "" {
		return r.fail(reason, maxScore)
	}

	if entropy := shannonEntropy(f.Data); entropy > entropyThreshold {
		r.warn(fmt.Sprintf("high entropy (%.2f bits/byte): likely compressed or encrypted content", entropy), penaltyHighEntropy)
	}

	if reason := checkSize(f, r); reason != "" {
		return r.fail(reason, 50)
	}

	if r.Score < safetyFloor {
		r.Safe = false
		r.Reason = "accumulated risk score below safety floor"
	}
	return *r
}

func (v *Validator) hashBlocked(data []byte) bool {
	if len(v.blocked) == 0 {
		return false
	}
	digest, err := hasher.Sum(v.cfg.HashAlgorithm, data)
	if err != nil {
		return false
	}
	_, hit := v.blocked[digest]
	return hit
}

// checkSize compares the declared size to the buffered length and rejects
// empty uploads.
func checkSize(f File, r *Result) string {
	actual := int64(len(f.Data))
	if actual == 0 {
		return "zero-byte upload"
	}
	if f.DeclaredSize <= 0 {
		return ""
	}
	drift := float64(f.DeclaredSize-actual) / float64(f.DeclaredSize)
	if drift < 0 {
		drift = -drift
	}
	if drift > sizeDriftTolerance {
		r.warn(fmt.Sprintf("declared size %d diverges from actual %d", f.DeclaredSize, actual), penaltySizeDrift)
	}
	return ""
}

func (r *Result) fail(reason string, penalty int) Result {
	r.Safe = false
	r.Errors = append(r.Errors, reason)
	if r.Reason == "" {
		r.Reason = reason
	}
	r.Score -= penalty
	if r.Score < 0 {
		r.Score = 0
	}
	return *r
}

func (r *Result) warn(msg string, penalty int) {
	r.Warnings = append(r.Warnings, msg)
	r.Score -= penalty
	if r.Score < 0 {
		r.Score = 0
	}
}
