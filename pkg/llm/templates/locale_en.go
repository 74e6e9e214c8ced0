package templates

// 英文（默认语言）RAG 模板集。
func init() {
	registerLocale("en", map[string]map[string]string{
		"rag": {
			"system_prompt": join(
				"You are an assistant to generate a response for the user.",
				"You will be provided with a set of documents associated with the user's query.",
				"You have to generate a response based on the documents provided.",
				"Ignore the documents that are not relevant to the user's query.",
				"You can apologize to the user if you are not able to generate a response.",
				"You have to generate a response in the same language as the user's query.",
				"Be polite and respectful to the user.",
				"Be precise and concise in your response. Avoid unnecessary information.",
				"Only use information from the provided documents - do not add external knowledge.",
				"If the documents don't contain sufficient information, clearly state this limitation.",
			),
			"document_prompt": join(
				"## Document No: $doc_num",
				"### Content: $chunk_text",
				"",
			),
			"footer_prompt": join(
				"Based strictly on the above documents, please generate an answer for the user.",
				"## Question:",
				"$query",
				"",
				"## Answer:",
			),
		},
	})
}
