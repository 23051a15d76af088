package services

import (
	"fmt"
	"strings"
)

const structurePrompt = `You are a Japanese Language Proficiency Test (JLPT) Listening Comprehension Question Extractor.

Your task is to extract all actual test questions from the given listening transcript. Each question typically includes: a short situation introduction, a spoken dialogue, a question, and either four or three options.

For each question, output in one of these formats (choose the correct one based on the question type):

<question>
Introduction:
[situation in Japanese]

Conversation:
[full dialogue in Japanese]

Question:
[question in Japanese]

Options:
1. [Option 1 in Japanese]
2. [Option 2 in Japanese]
3. [Option 3 in Japanese]
4. [Option 4 in Japanese]
CorrectAnswer: [1|2|3|4] (the number of the correct option)
</question>

OR (for response-type questions with 3 options):

<question>
Introduction:
[short statement or question in Japanese]

Conversation:
1. [first option in Japanese]
2. [second option in Japanese]
3. [third option in Japanese]

Question:
一番いいものはどれですか?

Options:
1. [repeat first option]
2. [repeat second option]
3. [repeat third option]
CorrectAnswer: [1|2|3] (the number of the correct option)
</question>

Rules:
- Each question MUST have exactly 4 options (or exactly 3 for response-type). Do NOT leave any option blank or missing.
- For each question, you MUST provide exactly one correct answer, indicated by the CorrectAnswer field.
- The CorrectAnswer must be a single number (1, 2, 3, or 4) matching one of the options.
- If the transcript does not provide enough information for all options, you MUST create plausible options yourself to ensure the correct number.
- Only real questions, ignore practice/例 or instructions
- No headers like '問題1' or '1番', no explanations like '1番いいものは3番です'
- No translation, no extra text, no explanations
- Remove unrelated phrases like 'では始めます', '練習しましょう', '[音楽]'`

func buildStructurePrompt(section string) string {
	return structurePrompt + "\n\nHere is the transcript:\n" + section
}

func buildQuestionPrompt(conversation string) string {
	var b strings.Builder
	b.WriteString("You are a JLPT listening comprehension question generator.\n\n")
	b.WriteString("Given the following Japanese conversation, create a new JLPT-style listening comprehension question.\n\n")
	b.WriteString("Output the question in this format (choose 3 or 4 options as appropriate):\n\n")
	b.WriteString("<question>\nIntroduction:\n[short context in Japanese]\n\n")
	b.WriteString("Conversation:\n[copy exactly as provided below]\n\n")
	b.WriteString("Question:\n[question in Japanese]\n\n")
	b.WriteString("Options:\n1. [Option 1 in Japanese]\n2. [Option 2 in Japanese]\n3. [Option 3 in Japanese]\n[4. [Option 4 in Japanese]]\n")
	b.WriteString("CorrectAnswer: [1|2|3|4] (the number of the correct option)\n</question>\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use the conversation exactly as provided, do not change or summarize it.\n")
	b.WriteString("- Only generate one question.\n")
	b.WriteString("- There must be exactly one correct answer, indicated by the CorrectAnswer field.\n")
	b.WriteString("- If the conversation only supports 3 options, use 3. Otherwise, use 4.\n")
	b.WriteString("- Do not add any explanation, translation, or extra text.\n")
	b.WriteString("- Output only the <question>...</question> block.\n\n")
	b.WriteString("Conversation:\n")
	b.WriteString(conversation)
	b.WriteString("\n")
	return b.String()
}

var jlptDescriptions = map[string]string{
	"N5": "cơ bản nhất (N5) - từ vựng đơn giản, thường dùng trong cuộc sống hàng ngày",
	"N4": "sơ cấp (N4) - từ vựng cơ bản đến trung cấp, thường gặp trong giao tiếp",
	"N3": "trung cấp (N3) - từ vựng trung cấp, phù hợp cho người học có nền tảng",
	"N2": "trung cao cấp (N2) - từ vựng khá phức tạp, thường dùng trong văn viết",
	"N1": "cao cấp (N1) - từ vựng nâng cao, thường gặp trong văn học và báo chí",
}

func buildVocabularyPrompt(theme, level string, count int, sourceText string) string {
	desc, ok := jlptDescriptions[level]
	if !ok {
		level, desc = "N5", jlptDescriptions["N5"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hãy tạo danh sách %d từ vựng tiếng Nhật theo chủ đề: %q với độ khó %s.\n\n", count, theme, desc)
	b.WriteString("Yêu cầu:\n")
	fmt.Fprintf(&b, "1. Chỉ trả về duy nhất một mảng JSON hợp lệ, không thêm text, giải thích hay markdown. Cần đủ %d từ.\n", count)
	b.WriteString("2. Mỗi phần tử có cấu trúc:\n")
	b.WriteString(`  - "kanji": từ tiếng Nhật (kanji, hiragana hoặc katakana)` + "\n")
	b.WriteString(`  - "romaji": cách đọc romaji chuẩn Hepburn, viết thường` + "\n")
	b.WriteString(`  - "vietnamese": nghĩa tiếng Việt ngắn gọn, không dùng tiếng Anh` + "\n")
	fmt.Fprintf(&b, "  - \"jlpt_level\": %q\n", level)
	b.WriteString(`  - "parts": mảng các object {"kanji": ký tự đơn, "romaji": [các âm tiết]}` + "\n")
	b.WriteString("3. Không được để trống \"parts\". Từ viết bằng kana thì tách từng ký tự kana.\n")
	fmt.Fprintf(&b, "4. Chọn từ vựng phù hợp với level JLPT %s: %s\n\n", level, desc)
	b.WriteString("Ví dụ định dạng đúng:\n")
	fmt.Fprintf(&b, `[{"kanji": "日本", "romaji": "nihon", "vietnamese": "Nhật Bản", "jlpt_level": %q, "parts": [{"kanji": "日", "romaji": ["ni"]}, {"kanji": "本", "romaji": ["hon"]}]}]`, level)
	b.WriteString("\n")

	if sourceText != "" {
		b.WriteString("\nChọn từ vựng xuất hiện trong tài liệu sau:\n")
		b.WriteString(truncateRunes(sourceText, 4000))
		b.WriteString("\n")
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
