package templates

import "strings"

// join 将多行模板拼接为一个以换行分隔的字符串。
func join(lines ...string) string {
	return strings.Join(lines, "\n")
}

// 阿拉伯语 RAG 模板集。
func init() {
	registerLocale("ar", map[string]map[string]string{
		"rag": {
			"system_prompt": join(
				"أنت مساعد لإنشاء رد للمستخدم.",
				"سيتم تزويدك بمجموعة من المستندات المرتبطة باستعلام المستخدم.",
				"عليك إنشاء رد بناءً على المستندات المقدمة.",
				"تجاهل المستندات غير المتعلقة باستعلام المستخدم.",
				"يمكنك الاعتذار للمستخدم إذا لم تتمكن من إنشاء رد.",
				"عليك إنشاء الرد بنفس لغة استعلام المستخدم.",
				"كن مهذبًا ومحترمًا مع المستخدم.",
				"كن دقيقًا وموجزًا في ردك وتجنب المعلومات غير الضرورية.",
				"استخدم فقط المعلومات الواردة في المستندات المقدمة ولا تضف معرفة خارجية.",
				"إذا لم تحتوِ المستندات على معلومات كافية، وضّح هذا القصور بصراحة.",
			),
			"document_prompt": join(
				"## مستند رقم: $doc_num",
				"### المحتوى: $chunk_text",
				"",
			),
			"footer_prompt": join(
				"استنادًا حصريًا إلى المستندات أعلاه، قم بإنشاء إجابة للمستخدم.",
				"## السؤال:",
				"$query",
				"",
				"## الإجابة:",
			),
		},
	})
}
