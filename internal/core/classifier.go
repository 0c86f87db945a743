package core

// Label is the name of a tag managed by tagarr.
type Label string

const (
	LabelNegativeScore Label = "negative_score"
	LabelPositiveScore Label = "positive_score"
	LabelNoScore       Label = "no_score"
	LabelMotong        Label = "motong"
	Label4K            Label = "4k"
)

// ManagedTag is a label together with the color used when creating it.
type ManagedTag struct {
	Label Label
	Color string
}

// ManagedTags is the full vocabulary, in creation order.
var ManagedTags = []ManagedTag{
	{LabelNegativeScore, "#ff0000"},
	{LabelPositiveScore, "#00ff00"},
	{LabelNoScore, "#808080"},
	{LabelMotong, "#800080"},
	{Label4K, "#0000ff"},
}

func IsManaged(label string) bool {
	for _, t := range ManagedTags {
		if string(t.Label) == label {
			return true
		}
	}
	return false
}

// Classify maps a custom format score to exactly one of the three score labels.
func Classify(score *int, threshold int) Label {
	switch {
	case score == nil:
		return LabelNoScore
	case *score < 0:
		return LabelNegativeScore
	case *score > threshold:
		return LabelPositiveScore
	default:
		return LabelNoScore
	}
}
