package classify

import "github.com/chaintally/chaintally/internal/model"

// MaxDetailedNotifications caps how many flagged transactions get an
// individually detailed notification per sync batch; the remainder are
// rolled up into a single count message.
const MaxDetailedNotifications = 3

// NeedsReview reports whether a label is too uncertain to accept
// without human confirmation. Confidence is informational only; the
// gate is the label itself.
func NeedsReview(class model.Classification) bool {
	return class == model.ClassUnknown || class == model.ClassContractInteraction
}
