package describe

import (
	"fmt"
	"strings"
)

const summarizeSystemPrompt = `You are a helpful assistant that summarizes product descriptions.
You will be given multiple descriptions of the same product.
Your description should keep the most important details of the product shared across the descriptions.
Your description should be of a single item, not plural.
Do not output generic descriptions such as "various sizes" or "various styles".
Avoid questions and avoid parentheses.
Use 5 or fewer words.
`

const editSystemPrompt = `You are a helpful assistant that summarizes product descriptions.
You will be given an original caption, and additional edits from the user.
Your description should be of a single item, not plural.
You may add or remove words from the caption. Usually the edits will be around the brand, color, texture, shape, or design.
You should avoid questions and avoid parentheses.
Use 10 or fewer words.
You may remove words from the original caption that contradict user instructions.
For example, if the original caption is "red shirt with blue stripes", and the user instructs you to see a yellow shirt, the new caption should be "yellow shirt with blue stripes".
`

func summarizePrompt(titles []string) (string, string) {
	lines := make([]string, 0, len(titles))
	for _, title := range titles {
		lines = append(lines, "- "+title)
	}
	user := fmt.Sprintf("Please summarize the following captions into a single one:\n%s\n",
		strings.Join(lines, "\n"))
	return summarizeSystemPrompt, user
}

func editPrompt(caption, instruction string) (string, string) {
	user := fmt.Sprintf("Please edit this caption to include a user instruction.\nCAPTION: %s\nINSTRUCTION: %s\n",
		caption, instruction)
	return editSystemPrompt, user
}
