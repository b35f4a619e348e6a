// Package ledger tracks the system anchor price against a user-entered
// override and attributes the difference across weighted causes. The cause
// weights are forced to close to exactly 100% (or all zero) after every
// edit; a ledger whose weights do not close cannot be saved.
package ledger

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/precisionworks/quote-engine/internal/model"
	"github.com/precisionworks/quote-engine/pkg/constants"
)

// ErrWeightsNotClosed blocks a save while cause weights do not sum to
// exactly 100. The caller resolves it by adjusting weights and retrying.
var ErrWeightsNotClosed = eris.New("variance cause weights must sum to exactly 100")

// ErrUnknownCause reports a weight edit against a cause the ledger was not
// initialized with.
var ErrUnknownCause = eris.New("unknown variance cause")

// Cause is a named variance cause with an integer weight percent.
type Cause struct {
	Name   string
	Weight int
}

// Ledger reconciles the anchor price with the user's override. All prices
// are per-unit dollars.
type Ledger struct {
	anchor    float64
	userPrice float64
	locked    bool
	causes    []Cause
	logger    *zap.Logger
}

// New builds a ledger over the given ordered cause names, all weighted 0.
func New(causeNames []string, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{logger: logger}
	for _, name := range causeNames {
		l.causes = append(l.causes, Cause{Name: name})
	}
	return l
}

// Anchor returns the current system anchor price.
func (l *Ledger) Anchor() float64 { return l.anchor }

// UserPrice returns the current (possibly overridden) quoted price.
func (l *Ledger) UserPrice() float64 { return l.userPrice }

// Locked reports whether the user has diverged from the anchor.
func (l *Ledger) Locked() bool { return l.locked }

// Causes returns a copy of the ordered cause list.
func (l *Ledger) Causes() []Cause {
	out := make([]Cause, len(l.causes))
	copy(out, l.causes)
	return out
}

// TotalWeight returns the sum of all cause weights.
func (l *Ledger) TotalWeight() int {
	total := 0
	for _, c := range l.causes {
		total += c.Weight
	}
	return total
}

// Recalculate installs a freshly computed anchor price. While the ledger is
// unlocked the user price follows the anchor transparently; once locked,
// the override is preserved and only the attribution baseline moves.
func (l *Ledger) Recalculate(anchor float64) {
	l.anchor = anchor
	if !l.locked {
		l.userPrice = anchor
		return
	}
	l.logger.Debug("anchor updated under lock",
		zap.String("op", "ledger.Recalculate"),
		zap.Float64("anchor", anchor),
		zap.Float64("userPrice", l.userPrice),
	)
}

// SetUserPrice records a direct price edit. Any such edit locks the ledger
// until an explicit reset.
func (l *Ledger) SetUserPrice(price float64) {
	l.userPrice = price
	l.locked = true
}

// ResetToAnchor clears the override: the ledger unlocks, every cause weight
// drops to zero, and the user price snaps back to the anchor.
func (l *Ledger) ResetToAnchor() {
	l.locked = false
	l.userPrice = l.anchor
	for i := range l.causes {
		l.causes[i].Weight = 0
	}
}

// Reset reinitializes the ledger for a new quote or material change,
// replacing the cause list and clearing the lock.
func (l *Ledger) Reset(causeNames []string) {
	l.locked = false
	l.anchor = 0
	l.userPrice = 0
	l.causes = l.causes[:0]
	for _, name := range causeNames {
		l.causes = append(l.causes, Cause{Name: name})
	}
}

// SetWeight applies a single-cause weight edit and proportionally
// renormalizes every other cause so the total closes to exactly 100 (or to
// 0 when nothing else carries weight). The edited weight itself is clamped
// to [0,100].
func (l *Ledger) SetWeight(name string, weight int) error {
	idx := -1
	for i := range l.causes {
		if l.causes[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return eris.Wrapf(ErrUnknownCause, "%q", name)
	}

	if weight < 0 {
		weight = 0
	} else if weight > 100 {
		weight = 100
	}
	l.causes[idx].Weight = weight

	otherSum := 0
	for i := range l.causes {
		if i != idx {
			otherSum += l.causes[i].Weight
		}
	}
	remaining := 100 - weight

	if remaining <= 0 || otherSum == 0 {
		for i := range l.causes {
			if i != idx {
				l.causes[i].Weight = 0
			}
		}
		return nil
	}

	// Scale the others proportionally, rounding to whole percents. Integer
	// rounding can leave the total off by a point, so the residual lands on
	// the last nonzero adjusted cause to keep the closure exact.
	scaled := 0
	lastAdjusted := -1
	for i := range l.causes {
		if i == idx {
			continue
		}
		w := int(math.Round(float64(l.causes[i].Weight) / float64(otherSum) * float64(remaining)))
		l.causes[i].Weight = w
		scaled += w
		if w > 0 {
			lastAdjusted = i
		}
	}
	if residual := remaining - scaled; residual != 0 && lastAdjusted >= 0 {
		l.causes[lastAdjusted].Weight += residual
		if l.causes[lastAdjusted].Weight < 0 {
			l.causes[lastAdjusted].Weight = 0
		}
	}
	return nil
}

// Delta returns userPrice - anchor.
func (l *Ledger) Delta() float64 {
	return l.userPrice - l.anchor
}

// DeltaPercent returns the delta as a percentage of the anchor, or 0 when
// the anchor is not positive.
func (l *Ledger) DeltaPercent() float64 {
	if l.anchor <= 0 {
		return 0
	}
	return l.Delta() / l.anchor * 100
}

// Unexplained returns the portion of the price delta not covered by any
// weighted cause, in dollars and as a percentage of the anchor.
func (l *Ledger) Unexplained() (dollars, percent float64) {
	totalDelta := l.Delta()
	explained := float64(l.TotalWeight()) / 100 * totalDelta
	dollars = totalDelta - explained
	if l.anchor > 0 {
		percent = dollars / l.anchor * 100
	}
	return dollars, percent
}

// NeedsAttribution reports whether the price delta is large enough for the
// attribution breakdown to be surfaced at all. Deltas of fifty cents or
// less are treated as rounding noise.
func (l *Ledger) NeedsAttribution() bool {
	return l.locked && math.Abs(l.Delta()) > constants.VarianceDisplayDollars
}

// Significant reports whether the unexplained variance is large enough to
// demand user attention (> 1% of anchor or > $2.00). Values below both
// thresholds are within noise tolerance.
func (l *Ledger) Significant() bool {
	dollars, percent := l.Unexplained()
	return math.Abs(percent) > constants.SignificantVariancePercent ||
		math.Abs(dollars) > constants.SignificantVarianceDollars
}

// Validate checks that the ledger may be persisted: weights must sum to
// exactly 100, or to 0 when no attribution has been made at all.
func (l *Ledger) Validate() error {
	total := l.TotalWeight()
	if total == 0 || total == 100 {
		return nil
	}
	return eris.Wrapf(ErrWeightsNotClosed, "current total %d", total)
}

// GlassBox assembles the persistence payload. Attribution is nil when no
// override is active or no causes carry weight.
func (l *Ledger) GlassBox() model.GlassBox {
	out := model.GlassBox{
		SystemPriceAnchor: l.anchor,
		FinalQuotedPrice:  l.userPrice,
	}
	if !l.locked {
		return out
	}
	causes := make(map[string]float64)
	for _, c := range l.causes {
		if c.Weight > 0 {
			causes[c.Name] = float64(c.Weight) / 100
		}
	}
	if len(causes) == 0 {
		return out
	}
	out.Attribution = &model.Attribution{
		Causes:  causes,
		Delta:   l.Delta(),
		Percent: l.DeltaPercent(),
	}
	return out
}
