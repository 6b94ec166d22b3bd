package agent

import (
	"aiderdesk/config"
	"aiderdesk/model"
)

const imageRenderedText = "Image rendered."

// convertImageToolResults moves single-image tool results into synthetic user
// messages so vision-capable models can see them. Each synthetic message is
// placed right after its tool message, in part order.
//
// origins maps every output index to the index of the input message it came
// from, or -1 for synthetic messages.
func convertImageToolResults(messages []model.Message) (result []model.Message, origins []int) {
	result = make([]model.Message, 0, len(messages))
	origins = make([]int, 0, len(messages))

	for i, msg := range messages {
		if msg.Role != model.RoleTool {
			result = append(result, msg)
			origins = append(origins, i)
			continue
		}

		var updated *model.Message
		var images []model.Message
		for j, part := range msg.Parts {
			if part.Type != model.PartToolResult || part.Output == nil {
				continue
			}
			shape := imageShape(*part.Output)
			if shape.kind != shapeImage {
				continue
			}

			if updated == nil {
				clone := msg.Clone()
				updated = &clone
			}
			placeholder := model.TextOutput(imageRenderedText)
			updated.Parts[j].Output = &placeholder

			images = append(images, model.Message{
				Role:  model.RoleUser,
				Parts: []model.Part{model.ImagePart(shape.imageData, shape.mimeType)},
			})
			config.Logger().Info("Adding user message for image tool result", "toolCallId", part.ToolCallID)
		}

		if updated == nil {
			result = append(result, msg)
		} else {
			result = append(result, *updated)
		}
		origins = append(origins, i)

		for _, img := range images {
			result = append(result, img)
			origins = append(origins, -1)
		}
	}

	return result, origins
}
