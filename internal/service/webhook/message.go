// Package webhook Discord 호환 웹훅 메시지의 모델과 발송, 등록 관리를 담당합니다.
package webhook

// Message 웹훅 엔드포인트로 POST되는 최상위 페이로드입니다.
type Message struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []Embed `json:"embeds"`
}

// Embed 웹훅 메시지에 포함되는 하나의 임베드 카드입니다.
type Embed struct {
	Title       string          `json:"title,omitempty"`
	URL         string          `json:"url,omitempty"`
	Description string          `json:"description,omitempty"`
	Color       int             `json:"color,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	Thumbnail   *EmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []EmbedField    `json:"fields,omitempty"`
	Footer      *EmbedFooter    `json:"footer,omitempty"`
}

// EmbedField 임베드 카드 내의 이름/값 필드입니다.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedThumbnail 임베드 카드의 썸네일 이미지입니다.
type EmbedThumbnail struct {
	URL string `json:"url"`
}

// EmbedFooter 임베드 카드 하단의 푸터입니다.
type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}
