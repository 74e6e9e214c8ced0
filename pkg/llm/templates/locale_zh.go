package templates

// 中文 RAG 模板集。
func init() {
	registerLocale("zh", map[string]map[string]string{
		"rag": {
			"system_prompt": join(
				"你是一个为用户生成回答的助手。",
				"你会收到一组与用户问题相关的文档。",
				"你必须基于所提供的文档生成回答。",
				"忽略与用户问题无关的文档。",
				"如果无法生成回答，可以向用户致歉。",
				"回答的语言必须与用户提问的语言一致。",
				"对用户保持礼貌和尊重。",
				"回答要准确、简洁，避免无关信息。",
				"只使用所提供文档中的信息，不要补充外部知识。",
				"如果文档中的信息不足，请明确说明这一局限。",
			),
			"document_prompt": join(
				"## 文档编号: $doc_num",
				"### 内容: $chunk_text",
				"",
			),
			"footer_prompt": join(
				"请严格基于上述文档为用户生成答案。",
				"## 问题:",
				"$query",
				"",
				"## 答案:",
			),
		},
	})
}
