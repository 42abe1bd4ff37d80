package tool

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/hitoshi/pttman/internal/model"
	"github.com/hitoshi/pttman/internal/ptt"
)

// Content はエンベロープ内の1ブロック。常に type="text"。
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Envelope は全ツール共通の応答形式。
type Envelope struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

// Text は最初のテキストブロックを返す。
func (e Envelope) Text() string {
	if len(e.Content) == 0 {
		return ""
	}
	return e.Content[0].Text
}

// Reply は操作の成功結果。
// Payload が nil でない場合、テキストは "Message:\n\n" に整形済みJSONを続けたものになる。
type Reply struct {
	Message string
	Payload any
}

// errorPrefix は失敗時テキストの接頭辞。
const errorPrefix = "錯誤: "

func textEnvelope(text string, isError bool) Envelope {
	return Envelope{
		Content: []Content{{Type: "text", Text: text}},
		IsError: isError,
	}
}

// successEnvelope はReplyをエンベロープに変換する。
func successEnvelope(r *Reply) (Envelope, error) {
	if r.Payload == nil {
		return textEnvelope(r.Message, false), nil
	}
	body, err := marshalIndent(r.Payload)
	if err != nil {
		return Envelope{}, err
	}
	return textEnvelope(r.Message+":\n\n"+body, false), nil
}

// failureEnvelope はエラーをエンベロープに変換する。
func failureEnvelope(err error) Envelope {
	return textEnvelope(errorPrefix+UserMessage(err), true)
}

// UserMessage はエラーから利用者向けのメッセージを取り出す。
// ToolError は Message（と Action）、取得失敗は FetchError の文言、それ以外は内部エラーとして扱う。
func UserMessage(err error) string {
	if te, ok := asToolError(err); ok {
		if te.Action != "" {
			return te.Message + " " + te.Action
		}
		return te.Message
	}
	var fe *ptt.FetchError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return model.NewInternalError(err.Error()).Message
}

func asToolError(err error) (*model.ToolError, bool) {
	var te *model.ToolError
	ok := errors.As(err, &te)
	return te, ok
}

// marshalIndent は2スペースインデントのJSONを返す。HTMLエスケープは行わない。
func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
