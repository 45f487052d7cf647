// prompts.go - Prompt templates for product recognition, matching and verification
package ai

import (
	"fmt"
	"strings"
)

// BuildOCRPrompt asks a multimodal model to transcribe label text only.
func BuildOCRPrompt() string {
	return `Transcribe every piece of text printed on this product package exactly as it appears.
Write one text line per output line, top to bottom.
Keep Korean (Hangul) text as Hangul; do not translate or romanize.
Output plain text only: no commentary, no Markdown, no code fences.`
}

// BuildDetectProductsPrompt asks for the products visible in an image as
// Korean/English name pairs.
func BuildDetectProductsPrompt() string {
	return `다음 이미지를 분석해서 보이는 상품별로 한글 상품명과 영문 상품명을 찾아줘.
다른 설명 없이 반드시 다음 형식의 JSON 배열만 반환해.

[
  { "korean": "한글명", "english": "English name" }
]

상품이 없으면 [] 를 반환해.`
}

// BuildVariantPrompt asks for a one-to-one Korean <-> English rendering of name.
func BuildVariantPrompt(name string) string {
	return fmt.Sprintf(`"%s"를 한국어 <-> 영어 1:1 변환.
다른 출력 없이 JSON 형식으로만.
예시 :
{
  "korean": "한글",
  "english": "영어"
}`, name)
}

// BuildRerankPrompt asks for at most topK of the most plausible catalog
// names for productName, as a JSON array of strings.
func BuildRerankPrompt(productName string, candidates []string, topK int) string {
	var list strings.Builder
	for _, c := range candidates {
		list.WriteString("- ")
		list.WriteString(c)
		list.WriteString("\n")
	}

	return fmt.Sprintf(`다음은 "%s"이라는 상품명과 유사한 제품 이름 목록이야.
가장 유사한 상품을 최대 %d개까지 JSON 배열로만 반환해줘.
목록에 있는 이름을 그대로 사용해.

예시:
["제품A", "제품B", "제품C"]

제품 리스트:
%s`, productName, topK, list.String())
}

// BuildVerifyPrompt asks whether two images show the same exact product.
// The first image is the photographed label, the second the catalog reference.
func BuildVerifyPrompt() string {
	return `You are an expert-level image comparison system specializing in product identification.

Your task is to determine if the two provided images represent the **same exact product**.

Use the following strict criteria to make your decision:

1. Identical product name text (visible on the packaging)
2. Matching brand logo or specific design elements
3. Consistent packaging color, layout, and visual motifs
4. Identical structure, labels, and characters (OCR-based comparison allowed)

Priority should be given to the product name.

Output Format:
Return only one of the following JSON objects, with nothing else:

If the images show the same product:
{ "sameProduct": true }

If the images show different products:
{ "sameProduct": false }

Absolutely no other commentary or explanations. Return only valid JSON.`
}

// BuildBestGuessPrompt asks which numbered candidate is most likely the
// product in the image when none was confirmed outright.
func BuildBestGuessPrompt(productName string, candidates []string) string {
	var list strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&list, "%d. %s\n", i+1, c)
	}

	return fmt.Sprintf(`The image shows a product read as "%s".
None of the catalog products below was confirmed as an exact match.
Pick the single candidate that is most likely the same product.

Candidates:
%s
Return only this JSON object, with nothing else:
{ "index": <candidate number> }`, productName, list.String())
}
