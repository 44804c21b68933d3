package llm

const GetTextTool = "get_text"

// ArticleTools is what the summarizer offers on its first round.
var ArticleTools = []Tool{
	{
		Name:        GetTextTool,
		Description: "Get the news text from a website for a given URL. Call this whenever the user provides a URL or asks for you to summarize the article.",
		Parameters: strict(objReq(map[string]any{
			"url": prop("string", "The URL of the news article"),
		}, "url")),
	},
}

// Helper functions for building JSON Schema objects.

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func obj(properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func objReq(properties map[string]any, required ...string) map[string]any {
	s := obj(properties)
	s["required"] = required
	return s
}

func strict(schema map[string]any) map[string]any {
	schema["additionalProperties"] = false
	return schema
}
