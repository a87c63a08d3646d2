package content

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sampling temperatures per generator.
const (
	AdCopyTemperature     = 0.8
	AdVariantsTemperature = 0.9
	EvaluateTemperature   = 0.0
	ScriptTemperature     = 0.7
)

// DefaultVariants is the number of ad styles generated when none is given.
const DefaultVariants = 5

// BestMarker tags the section of a reply that is read aloud.
const BestMarker = "[BEST]"

// Platforms accepted by [NormalizePlatform].
const (
	Instagram = "Instagram"
	Facebook  = "Facebook"
	LinkedIn  = "LinkedIn"
)

// AdCopyPrompt asks for one ad: a headline, a description and a call to action.
func AdCopyPrompt(product, message string) string {
	return fmt.Sprintf(`당신은 디지털 마케팅 카피라이터입니다.
다음 정보를 바탕으로 광고 문구를 작성하시오.

제품/서비스: %s
핵심 메시지: %s

출력 형식:
1) 헤드라인 1문장
2) 설명 문장 1문장
3) 행동 유도 문구(CTA) 1문장
`, product, message)
}

// AdVariantsPrompt asks for n numbered ads in different styles.
func AdVariantsPrompt(product, message string, n int) string {
	if n <= 0 {
		n = DefaultVariants
	}
	return fmt.Sprintf(`당신은 디지털 마케팅 카피라이터입니다.
다음 정보를 바탕으로 서로 다른 스타일의 광고 문구를 %d개 작성하시오.

제품/서비스: %s
핵심 메시지: %s

조건:
- 각 광고 문구는 2문장 이내
- 문체와 표현은 서로 다르게 변형
- 번호를 붙여서 출력
`, n, product, message)
}

// TargetedAdPrompt asks for ads aimed at one audience, ending with the
// strongest one after a [BEST] marker.
func TargetedAdPrompt(product, message, target string) string {
	if target == "" {
		target = "일반 소비자"
	}
	return fmt.Sprintf(`당신은 전문 카피라이터입니다.
다음 정보를 바탕으로 타겟 소비자에게 맞춘 광고 카피를 작성하십시오.

제품/서비스: %s
핵심 문구: %s
타겟 소비자: %s

[작성 형식]
1) 서로 다른 스타일의 광고 카피 3개 (번호를 붙여서 출력)
2) 마지막에 %s 표시를 쓰고, 그 뒤에 세 가지 중 가장 효과적인 카피 1개를 다시 작성
`, product, message, target, BestMarker)
}

// EvaluatorPrompt asks the model to score one ad on clarity, persuasion and
// creativity (1-10 each) and report a total on a "총점:" line.
func EvaluatorPrompt(adText string) string {
	return fmt.Sprintf(`당신은 광고 카피 전문 평가관입니다.

아래 광고 문구를 명확성, 설득력, 창의성 기준으로 평가하십시오.
각 기준은 1~10점으로 채점하고, 마지막에 총점을 제시하십시오.

광고 문구:
%s

출력 형식(반드시 유지):
명확성: X
설득력: X
창의성: X
총점: X
`, adText)
}

var firstInt = regexp.MustCompile(`\d+`)

// ParseScore returns the first integer on the first line containing "총점",
// or 0 when there is no such line or it holds no digits.
func ParseScore(evaluation string) int {
	for line := range strings.Lines(evaluation) {
		if !strings.Contains(line, "총점") {
			continue
		}
		m := firstInt.FindString(line)
		if m == "" {
			return 0
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// NormalizePlatform maps user spellings to a canonical platform name.
// Anything not recognised as Instagram or Facebook is LinkedIn.
func NormalizePlatform(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "instagram", "insta", "인스타", "인스타그램":
		return Instagram
	case "facebook", "fb", "페이스북", "페북":
		return Facebook
	default:
		return LinkedIn
	}
}

// HashtagRange returns the recommended hashtag count bounds for a
// canonical platform name.
func HashtagRange(platform string) (lo, hi int) {
	switch platform {
	case Instagram:
		return 5, 10
	case Facebook:
		return 3, 5
	default:
		return 1, 3
	}
}

// SNSPrompt asks for a post tuned to the platform's conventions.
func SNSPrompt(platform, topic, style, target string) string {
	platform = NormalizePlatform(platform)
	lo, hi := HashtagRange(platform)
	audience := ""
	if target != "" {
		audience = fmt.Sprintf("④ 타겟: %s\n", target)
	}
	return fmt.Sprintf(`당신은 %[1]s 전문 SNS 콘텐츠 기획자입니다.
다음 조건을 만족하는 소셜 미디어 포스팅 문구를 작성하십시오.

[조건]
① 주제: %[2]s
② 스타일: %[3]s
③ 플랫폼: %[1]s
%[6]s
[플랫폼별 규칙]
- Instagram: 감성적 표현, 문단 구분, 해시태그 %[4]d~%[5]d개
- Facebook: 간결한 단문 중심, 해시태그 %[4]d~%[5]d개
- LinkedIn: 전문가 톤, 핵심 메시지 중심, 해시태그 %[4]d~%[5]d개

[출력 형식]
1) 본문(자연스럽고 명확한 문장)
2) 해시태그 목록(%[4]d~%[5]d개 범위 준수)

문장은 실제 플랫폼에서 바로 사용할 수 있도록 자연스럽게 작성하십시오.
`, platform, topic, style, lo, hi, audience)
}

// KeypointCount returns how many key messages a video of the given length
// carries: 2 for one minute, 3 for three minutes, 5 otherwise.
func KeypointCount(duration string) int {
	d := strings.TrimSpace(duration)
	switch {
	case strings.HasPrefix(d, "1분"):
		return 2
	case strings.HasPrefix(d, "3분"):
		return 3
	default:
		return 5
	}
}

// YouTubePrompt asks for an intro / body / conclusion script.
func YouTubePrompt(topic, duration, style, target string) string {
	audience := ""
	if target != "" {
		audience = fmt.Sprintf("④ 타겟 시청자: %s\n", target)
	}
	return fmt.Sprintf(`당신은 유튜브 영상 전문 작가입니다.
아래 조건에 따라 영상 스크립트를 작성하세요.

[조건]
① 주제: %s
② 영상 길이: %s
③ 스타일: %s
%s
[작성 형식]
1) 도입부
2) 본문(%d개의 핵심 메시지 포함)
3) 결론 및 CTA

문장은 자연스럽고 명료하게 작성합니다.
`, topic, duration, style, audience, KeypointCount(duration))
}

// ScriptSystemPrompt is the content-creator persona, anchored to the month
// of now so the model does not date its output.
func ScriptSystemPrompt(now time.Time) string {
	return fmt.Sprintf(`당신은 전문 콘텐츠 크리에이터이자 마케팅 전문가입니다.
현재 날짜는 %d년 %d월이므로 과거 연도(%d 이전)를 언급하지 마십시오.
모든 콘텐츠는 %d년 %d월의 트렌드, 소비자 행동, 플랫폼 알고리즘, 언어 사용을 반영해야 합니다.
`, now.Year(), int(now.Month()), now.Year()-1, now.Year(), int(now.Month()))
}

// BestSection returns the trimmed text after the last [BEST] marker, or
// the whole trimmed reply when there is none.
func BestSection(reply string) string {
	if i := strings.LastIndex(reply, BestMarker); i >= 0 {
		return strings.TrimSpace(reply[i+len(BestMarker):])
	}
	return strings.TrimSpace(reply)
}

var variantStart = regexp.MustCompile(`^\s*(\d+)\s*[.)]\s*`)

// SplitVariants splits a numbered list ("1. ...", "2) ...") into its items.
// Lines that do not start a new item are appended to the current one.
// Text before the first numbered line is ignored.
func SplitVariants(reply string) []string {
	var (
		out []string
		cur strings.Builder
		in  bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); in && s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for line := range strings.Lines(reply) {
		if loc := variantStart.FindStringIndex(line); loc != nil {
			flush()
			in = true
			cur.WriteString(line[loc[1]:])
			continue
		}
		if in {
			cur.WriteString(line)
		}
	}
	flush()
	return out
}
