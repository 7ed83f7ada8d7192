package extract

import (
	"fmt"
	"strings"
)

// Sentinel message the model is told to use when the source has no recipe.
const noRecipeFallbackMsg = "レシピ情報が見つかりませんでした"

const maxStepPreviewRunes = 40

// PromptInput is what the prompt builder needs for one extraction.
type PromptInput struct {
	// PageSignals is set for URL-sourced extractions; nil for pasted text.
	Signals *PageSignals
	// Text is the pasted text for text-mode extractions (already capped).
	Text string
	// Categories are the known category names used to bias classification.
	Categories []string
}

// BuildPrompt assembles the instruction document sent to the model. The
// document itself specifies the exact output schema, grouping semantics,
// per-step tips vs. overall tips, classification guidance, an exclusion list
// for non-recipe content, and the error sentinel.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	if in.Signals != nil {
		b.WriteString("以下のウェブページのテキストからレシピ情報を抽出してください。\n")
	} else {
		b.WriteString("以下のテキストからレシピ情報を抽出してください。\n")
		b.WriteString("テキストはウェブページからコピーされたものや、ユーザーが直接入力したものです。\n")
	}
	b.WriteString("JSON形式のみで回答してください。マークダウンのコードブロックは使わないでください。\n\n")

	b.WriteString("抽出する情報:\n")
	b.WriteString("- title: 料理名\n")
	b.WriteString(`- ingredients: 材料リスト（配列）各要素は {"name": "材料名", "amount": "分量", "group": "グループ名"} の形式。材料が「A」「B」「ソース」「生地」「タレ」などのグループに分かれている場合はgroup名を設定。グループがない場合はgroupを空文字列にしてください` + "\n")
	b.WriteString(`- steps: 調理手順（配列）各要素は {"text": "手順テキスト", "imageUrl": "手順画像のURL", "tip": "この手順のポイント・コツ"} の形式。各手順に固有のポイントやコツがあればtipに設定、なければ空文字列にしてください` + "\n")
	b.WriteString("- cookingTime: 調理時間\n")
	b.WriteString("- servings: 何人前\n")
	b.WriteString("- calories: カロリー\n")
	b.WriteString(`- nutrition: 栄養情報（オブジェクト形式 {"key": "value"}）` + "\n")
	b.WriteString("- tips: 全体的なポイント・コツ・ヒント（文字列の配列）。各手順固有のコツはstepsのtipフィールドに入れてください\n")
	b.WriteString(categoryLine(in.Categories))
	if in.Signals != nil {
		fmt.Fprintf(&b, "- imageUrl: %q\n", in.Signals.HeroImageURL)
	} else {
		b.WriteString(`- imageUrl: ""` + "\n")
	}
	b.WriteString("\n")

	if in.Signals != nil {
		writeImageGuidance(&b, in.Signals)
	}

	b.WriteString("重要: レシピの調理に直接関係ない内容は全て除外してください。例:\n")
	b.WriteString("- 投稿者の日記・近況報告・感想\n")
	b.WriteString("- コメント数・閲覧数・SNSの反応\n")
	b.WriteString("- 日付付きの更新メモ\n")
	b.WriteString("- 広告・宣伝・他レシピへのリンク紹介\n\n")

	b.WriteString("テキストにレシピ情報が含まれていない場合は、以下のJSONを返してください:\n")
	b.WriteString(`{"error": "` + noRecipeFallbackMsg + `"}` + "\n\n")

	b.WriteString("情報が見つからないフィールドは空文字列または空配列を返してください。nullや省略は使わないでください。\n\n")

	b.WriteString("回答は以下のJSON形式のみで返してください:\n")
	b.WriteString(`{"title":"string","ingredients":[{"name":"string","amount":"string","group":"string"}],"steps":[{"text":"string","imageUrl":"string","tip":"string"}],"cookingTime":"string","servings":"string","calories":"string","nutrition":{},"tips":["string"],"category":"string","imageUrl":"string"}` + "\n\n")

	if in.Signals != nil {
		b.WriteString("ウェブページのテキスト:\n")
		b.WriteString(in.Signals.PlainText)
	} else {
		b.WriteString("テキスト:\n")
		b.WriteString(in.Text)
	}

	return b.String()
}

func categoryLine(categories []string) string {
	if len(categories) > 0 {
		return "- category: このレシピのカテゴリ名（文字列）。以下の既存カテゴリから最も適切なものを選んでください: [" +
			strings.Join(categories, ", ") +
			"]。どれにも当てはまらない場合は新しいカテゴリ名を提案してください（例: 主菜、副菜、スープ、デザート、パン、麺類など）\n"
	}
	return "- category: このレシピのカテゴリ名（文字列）。料理のカテゴリ名を提案してください（例: 主菜、副菜、スープ、デザート、パン、麺類など）\n"
}

// writeImageGuidance presents the harvested image signals. Structured-data
// steps come first as the preferred text-to-image mapping; the raw candidate
// list is only a fallback source.
func writeImageGuidance(b *strings.Builder, sig *PageSignals) {
	withImages := 0
	for _, s := range sig.StructuredSteps {
		if s.ImageURL != "" {
			withImages++
		}
	}

	if withImages > 0 {
		b.WriteString("このページの構造化データから、手順ごとの画像が見つかりました。stepsのimageUrlには、手順テキストと一致するものを優先的に以下から使ってください:\n")
		for i, s := range sig.StructuredSteps {
			if s.ImageURL == "" {
				continue
			}
			fmt.Fprintf(b, "%d. 「%s」 → %s\n", i+1, truncateRunes(s.Text, maxStepPreviewRunes), s.ImageURL)
		}
		b.WriteString("\n")
	}

	if len(sig.CandidateImages) > 0 {
		if withImages > 0 {
			b.WriteString("上記で手順に対応する画像が見つからない場合のみ、以下の画像候補リストから選んでください:\n")
		} else {
			b.WriteString("ページ内の画像候補リスト（手順の説明と一致するものをstepsのimageUrlに設定してください。該当がなければ空文字列のままにしてください）:\n")
		}
		for i, img := range sig.CandidateImages {
			fmt.Fprintf(b, "%d. URL: %s", i+1, img.Src)
			if img.Alt != "" {
				fmt.Fprintf(b, " / alt: %s", img.Alt)
			}
			if img.Context != "" {
				fmt.Fprintf(b, " / 前後のテキスト: %s", img.Context)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}
