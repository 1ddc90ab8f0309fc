package domain

const DefaultModel = "gpt-3.5-turbo-0125"

var SupportedModels = []string{
	"gpt-3.5-turbo-0125",
	"gpt-4-turbo",
}

// PremiumModels require the premium capability flag on the user's settings.
var PremiumModels = []string{
	"gpt-4-turbo",
}

// Settings is the per-chat user record: created on first interaction,
// mutated only by an explicit model selection.
type Settings struct {
	ChatID  int64
	Model   string
	Premium bool
}
