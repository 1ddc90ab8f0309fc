package tools

import (
	"context"
	"log/slog"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// addImage attaches an image URL to the final answer. It never performs a
// network call: the effect is recording the URL in the round state.
type addImage struct{}

func NewAddImage() *addImage {
	return &addImage{}
}

func (a *addImage) Name() string {
	return "add_image"
}

func (a *addImage) Description() string {
	return "Add image to the result from URL. Up to 10 calls total for one message. " +
		"Use only for necessary images"
}

func (a *addImage) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"url": {
				Type:        jsonschema.String,
				Description: "URL of the image",
			},
		},
		Required: []string{"url"},
	}
}

// ImageURL reports the image to attach to the final answer.
func (a *addImage) ImageURL(args map[string]any) string {
	url, _ := args["url"].(string)
	return url
}

func (a *addImage) Function() any {
	return func(ctx context.Context, chatID int64, url string) (string, error) {
		slog.DebugContext(ctx, "Image attached", "url", url, "chatID", chatID)
		return "Image added successfully", nil
	}
}
